package fixture

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/prepop/internal/ir"
)

// ResolutionState is the per-instance state of data resolution.
type ResolutionState int

const (
	// StateUnattempted means no resolution has run yet.
	StateUnattempted ResolutionState = iota

	// StateResolved means resolution ran and found no unresolvable dependency.
	StateResolved

	// StateUnresolvable means resolution ran and found at least one
	// unresolvable dependency. Resolved data is still available.
	StateUnresolvable

	// StateFailed means resolution was aborted by an error (a backend failure
	// or a ProgrammingError). The same error is returned on every access.
	StateFailed
)

// String implements fmt.Stringer.
func (s ResolutionState) String() string {
	switch s {
	case StateUnattempted:
		return "unattempted"
	case StateResolved:
		return "resolved"
	case StateUnresolvable:
		return "unresolvable"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("ResolutionState(%d)", int(s))
	}
}

// resolution is set exactly once, by Fixture.resolve.
type resolution struct {
	state ResolutionState
	data  ir.IRObject
	dep   *Fixture
	err   error
}

// FieldResolverFunc transforms one field of fully resolved data.
type FieldResolverFunc func(ctx context.Context, value ir.IRValue) (ir.IRValue, error)

// FieldResolver binds a transform to a field name.
type FieldResolver struct {
	Field   string
	Resolve FieldResolverFunc
}

// FieldResolvers is a kind's declarative field resolver table. Resolvers
// run in table order.
type FieldResolvers []FieldResolver

// Field declares a field resolver.
func Field(name string, fn FieldResolverFunc) FieldResolver {
	return FieldResolver{Field: name, Resolve: fn}
}

// ResolvedData returns the fixture's data after resolution, resolving on
// first access. The result may contain ir.IRUnresolvable markers; it never
// contains references.
func (f *Fixture) ResolvedData(ctx context.Context) (ir.IRObject, error) {
	if err := f.resolve(ctx); err != nil {
		return ir.IRObject{}, err
	}
	return f.res.data, nil
}

// Resolvable reports whether resolution found no unresolvable dependency.
// Querying it before any resolution attempt is a ProgrammingError.
func (f *Fixture) Resolvable() (bool, error) {
	switch f.res.state {
	case StateUnattempted:
		return false, programmingError(ErrCodeNotAttempted, "resolvability of %s queried before resolution", f)
	case StateFailed:
		return false, f.res.err
	default:
		return f.res.state == StateResolved, nil
	}
}

// State returns the current resolution state.
func (f *Fixture) State() ResolutionState {
	return f.res.state
}

// UnresolvableDependency returns the first dependency that failed to
// resolve, or nil.
func (f *Fixture) UnresolvableDependency() *Fixture {
	return f.res.dep
}

// resolve runs the resolution algorithm once and caches its outcome,
// including a failure.
func (f *Fixture) resolve(ctx context.Context) error {
	if f.res.state != StateUnattempted {
		return f.res.err
	}

	data, dep, err := f.runResolution(ctx)
	switch {
	case err != nil:
		f.res = resolution{state: StateFailed, err: err}
	case dep != nil:
		f.res = resolution{state: StateUnresolvable, data: data, dep: dep}
	default:
		f.res = resolution{state: StateResolved, data: data}
	}
	return f.res.err
}

func (f *Fixture) runResolution(ctx context.Context) (ir.IRObject, *Fixture, error) {
	walked, err := ir.Walk(f.data, func(v ir.IRValue) (ir.Step, error) {
		ref, ok := v.(ir.IRRef)
		if !ok {
			return ir.Continue(), nil
		}
		target, err := referentFixture(ref.Target)
		if err != nil {
			return ir.Step{}, err
		}
		resolved, err := target.resolveSelf(ctx)
		if err != nil {
			return ir.Step{}, err
		}
		return ir.Terminate(resolved), nil
	})
	if err != nil {
		return ir.IRObject{}, nil, err
	}
	data := walked.(ir.IRObject)

	dep, err := findUnresolvableDependency(data)
	if err != nil {
		return ir.IRObject{}, nil, err
	}
	if dep != nil {
		// Field resolvers expect fully resolved values.
		return data, dep, nil
	}

	provider, ok := f.kind.(FieldResolverProvider)
	if !ok {
		return data, nil, nil
	}
	for _, fr := range provider.FieldResolvers() {
		v, ok := data.Get(fr.Field)
		if !ok {
			continue
		}
		out, err := fr.Resolve(ctx, v)
		if err != nil {
			return ir.IRObject{}, nil, fmt.Errorf("field resolver %q on %s: %w", fr.Field, f, err)
		}
		data = data.With(fr.Field, out)
	}
	return data, nil, nil
}

// resolveSelf returns the value that replaces a reference to f.
func (f *Fixture) resolveSelf(ctx context.Context) (ir.IRValue, error) {
	sr, ok := f.kind.(SelfResolver)
	if !ok {
		return ir.IRUnresolvable{Target: f}, nil
	}

	v, err := sr.ResolveSelf(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", f, err)
	}
	switch val := v.(type) {
	case nil:
		return nil, programmingError(ErrCodeRefResolvedToRef, "fixture %s resolved to nil", f)
	case ir.IRRef:
		return nil, programmingError(ErrCodeRefResolvedToRef, "fixture %s resolved to another fixture %s", f, val.Target)
	}
	return v, nil
}

var errStopScan = errors.New("fixture: stop scan")

// findUnresolvableDependency returns the fixture behind the first
// unresolvable marker in data, in walk order.
func findUnresolvableDependency(data ir.IRValue) (*Fixture, error) {
	var dep *Fixture
	_, err := ir.Walk(data, func(v ir.IRValue) (ir.Step, error) {
		switch val := v.(type) {
		case ir.IRUnresolvable:
			target, err := referentFixture(val.Target)
			if err != nil {
				return ir.Step{}, err
			}
			dep = target
			return ir.Step{}, errStopScan
		case ir.IRRef:
			return ir.Step{}, programmingError(ErrCodeRawReference,
				"expected resolved data, found reference to %s", val.Target)
		}
		return ir.Continue(), nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, err
	}
	return dep, nil
}

func referentFixture(r ir.Referent) (*Fixture, error) {
	f, ok := r.(*Fixture)
	if !ok || f == nil {
		return nil, programmingError(ErrCodeForeignReferent, "reference target %T is not a fixture", r)
	}
	return f, nil
}

// Identity returns the given identifying fields of the resolved data, and
// whether all of them resolved. Kinds use it to implement Exists on
// partially resolved fixtures.
func (f *Fixture) Identity(ctx context.Context, fields ...string) (ir.IRObject, bool, error) {
	data, err := f.ResolvedData(ctx)
	if err != nil {
		return ir.IRObject{}, false, err
	}
	identity := data.Pick(fields...)
	if _, unresolved := ir.FirstUnresolvable(identity); unresolved {
		return identity, false, nil
	}
	return identity, true, nil
}
