package fixture

import (
	"context"
	"fmt"
)

// Outcome is the terminal state of one Load or Unload.
type Outcome int

const (
	// OutcomeNoop means nothing changed: the record was already present on
	// load, or already absent on unload.
	OutcomeNoop Outcome = iota

	// OutcomeCreated means Load created the record.
	OutcomeCreated

	// OutcomeDeleted means Unload deleted the record.
	OutcomeDeleted
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeCreated:
		return "created"
	case OutcomeDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "noop":
		*o = OutcomeNoop
	case "created":
		*o = OutcomeCreated
	case "deleted":
		*o = OutcomeDeleted
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// Load puts the fixture's record into storage unless it already exists.
//
// Returns an *UnresolvedDependencyError when the record is absent and the
// fixture is not resolvable. Loading an existing record is a no-op, so Load
// is idempotent.
func (f *Fixture) Load(ctx context.Context) (Outcome, error) {
	if err := f.resolve(ctx); err != nil {
		return OutcomeNoop, err
	}

	exists, err := f.kind.Exists(ctx, f)
	if err != nil {
		return OutcomeNoop, fmt.Errorf("check %s exists: %w", f, err)
	}
	if exists {
		return OutcomeNoop, nil
	}

	if f.res.state == StateUnresolvable {
		return OutcomeNoop, &UnresolvedDependencyError{Fixture: f, Dependency: f.res.dep}
	}

	if err := f.kind.Create(ctx, f); err != nil {
		return OutcomeNoop, fmt.Errorf("create %s: %w", f, err)
	}
	return OutcomeCreated, nil
}

// Unload removes the fixture's record from storage if it exists.
//
// Unresolvable fixtures are deleted too, as long as Exists can still
// identify their record.
func (f *Fixture) Unload(ctx context.Context) (Outcome, error) {
	if err := f.resolve(ctx); err != nil {
		return OutcomeNoop, err
	}

	exists, err := f.kind.Exists(ctx, f)
	if err != nil {
		return OutcomeNoop, fmt.Errorf("check %s exists: %w", f, err)
	}
	if !exists {
		return OutcomeNoop, nil
	}

	if err := f.kind.Delete(ctx, f); err != nil {
		return OutcomeNoop, fmt.Errorf("delete %s: %w", f, err)
	}
	return OutcomeDeleted, nil
}

// Resolve forces resolution without touching storage. It is a no-op after
// the first attempt.
func (f *Fixture) Resolve(ctx context.Context) error {
	return f.resolve(ctx)
}
