package kind

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/prepop/internal/compiler"
	"github.com/roach88/prepop/internal/fixture"
	"github.com/roach88/prepop/internal/ir"
	"github.com/roach88/prepop/internal/store"
)

// Store is the record storage a RecordKind works against. Implemented by
// *store.Store.
type Store interface {
	FindRecord(ctx context.Context, kind string, identity ir.IRObject) (store.Record, error)
	InsertRecord(ctx context.Context, kind string, identity, fields ir.IRObject) (store.Record, error)
	DeleteRecord(ctx context.Context, kind string, identity ir.IRObject) (bool, error)
}

// RecordKind is a fixture kind whose fixtures are records in a Store.
//
// Records are addressed by the kind's identifying fields. A reference to a
// RecordKind fixture resolves to the stored record's id.
type RecordKind struct {
	spec      ir.KindSpec
	schema    cue.Value
	store     Store
	resolvers fixture.FieldResolvers

	// Resolvers of identifying fields, applied by lookups when the
	// fixture's own field resolvers did not run.
	identityResolvers fixture.FieldResolvers
}

var (
	_ fixture.Kind                  = (*RecordKind)(nil)
	_ fixture.SelfResolver          = (*RecordKind)(nil)
	_ fixture.FieldResolverProvider = (*RecordKind)(nil)
	_ fixture.IdentifyingFields     = (*RecordKind)(nil)
)

// New builds a RecordKind from a compiled kind declaration.
func New(k *compiler.Kind, s Store) (*RecordKind, error) {
	rk := &RecordKind{
		spec:   k.Spec,
		schema: k.Schema,
		store:  s,
	}
	for _, t := range k.Spec.Resolve {
		fr, err := fieldResolver(t.Field, t.Transform)
		if err != nil {
			return nil, fmt.Errorf("kind %s: %w", k.Spec.Name, err)
		}
		rk.resolvers = append(rk.resolvers, fr)
		if slices.Contains(k.Spec.Identity, t.Field) {
			rk.identityResolvers = append(rk.identityResolvers, fr)
		}
	}
	return rk, nil
}

// NewSet builds one RecordKind per compiled kind, keyed by name.
func NewSet(kinds []*compiler.Kind, s Store) (map[string]fixture.Kind, error) {
	set := make(map[string]fixture.Kind, len(kinds))
	for _, k := range kinds {
		if _, dup := set[k.Spec.Name]; dup {
			return nil, fmt.Errorf("kind %s declared twice", k.Spec.Name)
		}
		rk, err := New(k, s)
		if err != nil {
			return nil, err
		}
		set[k.Spec.Name] = rk
	}
	return set, nil
}

// Name returns the kind name.
func (k *RecordKind) Name() string { return k.spec.Name }

// Spec returns the kind declaration.
func (k *RecordKind) Spec() ir.KindSpec { return k.spec }

// IdentifyingFields returns the fields records are looked up by.
func (k *RecordKind) IdentifyingFields() []string { return k.spec.Identity }

// FieldResolvers returns the declared field transforms.
func (k *RecordKind) FieldResolvers() fixture.FieldResolvers { return k.resolvers }

// identity returns the fixture's identifying fields as they are stored.
// Field resolvers only run on resolvable fixtures, so for an unresolvable
// fixture the transforms of identifying fields are applied here.
func (k *RecordKind) identity(ctx context.Context, f *fixture.Fixture) (ir.IRObject, bool, error) {
	identity, ok, err := f.Identity(ctx, k.spec.Identity...)
	if err != nil || !ok || len(k.identityResolvers) == 0 {
		return identity, ok, err
	}
	resolvable, err := f.Resolvable()
	if err != nil {
		return identity, false, err
	}
	if resolvable {
		return identity, true, nil
	}

	for _, r := range k.identityResolvers {
		v, present := identity.Get(r.Field)
		if !present {
			continue
		}
		out, err := r.Resolve(ctx, v)
		if err != nil {
			return identity, false, fmt.Errorf("resolve field %s of %s: %w", r.Field, f, err)
		}
		identity = identity.With(r.Field, out)
	}
	return identity, true, nil
}

// find looks the fixture's record up by identity. It reports false when
// the identity is not resolvable or no record matches.
func (k *RecordKind) find(ctx context.Context, f *fixture.Fixture) (store.Record, bool, error) {
	identity, ok, err := k.identity(ctx, f)
	if err != nil || !ok {
		return store.Record{}, false, err
	}

	rec, err := k.store.FindRecord(ctx, k.spec.Name, identity)
	if errors.Is(err, store.ErrNotFound) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, err
	}
	return rec, true, nil
}

// Exists reports whether a record with the fixture's identity is stored.
func (k *RecordKind) Exists(ctx context.Context, f *fixture.Fixture) (bool, error) {
	_, found, err := k.find(ctx, f)
	return found, err
}

// Create validates the resolved data against the kind's schema and stores
// it.
func (k *RecordKind) Create(ctx context.Context, f *fixture.Fixture) error {
	data, err := f.ResolvedData(ctx)
	if err != nil {
		return err
	}
	if err := k.validate(data); err != nil {
		return err
	}

	_, err = k.store.InsertRecord(ctx, k.spec.Name, data.Pick(k.spec.Identity...), data)
	return err
}

// validate unifies data with the schema and requires a concrete result.
func (k *RecordKind) validate(data ir.IRObject) error {
	if !k.schema.Exists() {
		return nil
	}
	v := k.schema.Unify(k.schema.Context().Encode(ir.ToAny(data)))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// Delete removes the record with the fixture's identity.
func (k *RecordKind) Delete(ctx context.Context, f *fixture.Fixture) error {
	identity, ok, err := k.identity(ctx, f)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("identity of %s is not resolvable", f)
	}

	_, err = k.store.DeleteRecord(ctx, k.spec.Name, identity)
	return err
}

// ResolveSelf returns the id of the fixture's stored record, or an
// unresolvable marker when there is none yet.
func (k *RecordKind) ResolveSelf(ctx context.Context, f *fixture.Fixture) (ir.IRValue, error) {
	rec, found, err := k.find(ctx, f)
	if err != nil {
		return nil, err
	}
	if !found {
		return ir.IRUnresolvable{Target: f}, nil
	}
	return ir.IRString(rec.ID), nil
}
