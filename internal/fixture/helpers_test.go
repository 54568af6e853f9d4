package fixture

import (
	"context"
	"fmt"

	"github.com/roach88/prepop/internal/ir"
)

// memKind is an in-memory Kind keyed by identifying fields.
// It does not implement SelfResolver; wrap it in referableKind for that.
type memKind struct {
	name      string
	identity  []string
	records   map[string]ir.IRObject
	resolvers FieldResolvers

	creates int
	deletes int
	exists  int
}

func newMemKind(name string, identity ...string) *memKind {
	return &memKind{
		name:     name,
		identity: identity,
		records:  make(map[string]ir.IRObject),
	}
}

func (k *memKind) Name() string { return k.name }

func (k *memKind) IdentifyingFields() []string { return k.identity }

func (k *memKind) FieldResolvers() FieldResolvers { return k.resolvers }

func (k *memKind) key(ctx context.Context, f *Fixture) (string, bool, error) {
	identity, ok, err := f.Identity(ctx, k.identity...)
	if err != nil || !ok {
		return "", false, err
	}
	key, err := ir.RecordIdentity(k.name, identity)
	if err != nil {
		return "", false, err
	}
	return key, true, nil
}

func (k *memKind) Exists(ctx context.Context, f *Fixture) (bool, error) {
	k.exists++
	key, ok, err := k.key(ctx, f)
	if err != nil || !ok {
		return false, err
	}
	_, found := k.records[key]
	return found, nil
}

func (k *memKind) Create(ctx context.Context, f *Fixture) error {
	data, err := f.ResolvedData(ctx)
	if err != nil {
		return err
	}
	key, ok, err := k.key(ctx, f)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("create called on unidentifiable %s", f)
	}
	k.records[key] = data
	k.creates++
	return nil
}

func (k *memKind) Delete(ctx context.Context, f *Fixture) error {
	key, ok, err := k.key(ctx, f)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete called on unidentifiable %s", f)
	}
	delete(k.records, key)
	k.deletes++
	return nil
}

// seed stores a record directly, bypassing Create.
func (k *memKind) seed(data ir.IRObject) {
	key := ir.MustRecordIdentity(k.name, data.Pick(k.identity...))
	k.records[key] = data
}

// referableKind resolves references to its fixtures to the record key.
type referableKind struct {
	*memKind
	resolveSelfCalls int
}

func newReferableKind(name string, identity ...string) *referableKind {
	return &referableKind{memKind: newMemKind(name, identity...)}
}

func (k *referableKind) ResolveSelf(ctx context.Context, f *Fixture) (ir.IRValue, error) {
	k.resolveSelfCalls++
	key, ok, err := k.key(ctx, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ir.IRUnresolvable{Target: f}, nil
	}
	if _, found := k.records[key]; !found {
		return ir.IRUnresolvable{Target: f}, nil
	}
	return ir.IRString(key), nil
}

// funcKind resolves references with an arbitrary function.
type funcKind struct {
	*memKind
	resolve func(f *Fixture) (ir.IRValue, error)
	calls   int
}

func (k *funcKind) ResolveSelf(_ context.Context, f *Fixture) (ir.IRValue, error) {
	k.calls++
	return k.resolve(f)
}

func str(s string) ir.IRString { return ir.IRString(s) }
