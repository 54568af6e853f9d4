package fixture

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/prepop/internal/ir"
)

// Kind is the storage capability set every fixture kind provides.
//
// Exists must succeed on fixtures that are not fully resolvable: it should
// look the record up using identifying fields only, and report false when
// those cannot be resolved. Backend "not found" conditions are ordinary
// absence, not errors.
//
// Create is only called on resolvable fixtures. Delete is only called when
// Exists reported true, possibly on an unresolvable fixture.
type Kind interface {
	Name() string
	Exists(ctx context.Context, f *Fixture) (bool, error)
	Create(ctx context.Context, f *Fixture) error
	Delete(ctx context.Context, f *Fixture) error
}

// SelfResolver is implemented by kinds whose fixtures can be referenced from
// other fixtures' data. ResolveSelf returns a concrete value identifying the
// stored record, or an ir.IRUnresolvable wrapping f. It must never return a
// reference.
//
// Kinds that do not implement SelfResolver always resolve to an
// unresolvable marker.
type SelfResolver interface {
	ResolveSelf(ctx context.Context, f *Fixture) (ir.IRValue, error)
}

// FieldResolverProvider is implemented by kinds that post-process fields of
// fully resolved data. The table is declared once, with the kind.
type FieldResolverProvider interface {
	FieldResolvers() FieldResolvers
}

// IdentifyingFields is implemented by kinds that know which fields identify
// a record. Fixture.String shows only these fields when present.
type IdentifyingFields interface {
	IdentifyingFields() []string
}

// Fixture is one declared record: a kind plus raw field data.
// Raw data is never modified after construction.
type Fixture struct {
	kind  Kind
	data  ir.IRObject
	label string

	res resolution
}

// Option configures a Fixture.
type Option func(*Fixture)

// WithLabel names the fixture in diagnostics.
func WithLabel(label string) Option {
	return func(f *Fixture) {
		f.label = label
	}
}

// New creates a fixture of the given kind. Embed other fixtures in data with
// Ref.
func New(kind Kind, data ir.IRObject, opts ...Option) *Fixture {
	f := &Fixture{kind: kind, data: data}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ref returns a reference to f for use inside another fixture's data.
func Ref(f *Fixture) ir.IRRef {
	return ir.IRRef{Target: f}
}

// Kind returns the fixture's kind.
func (f *Fixture) Kind() Kind {
	return f.kind
}

// Data returns the raw, unresolved data.
func (f *Fixture) Data() ir.IRObject {
	return f.data
}

// Label returns the diagnostic label, or "".
func (f *Fixture) Label() string {
	return f.label
}

// String renders the fixture as kind(label) or kind(field=value, ...).
func (f *Fixture) String() string {
	if f.label != "" {
		return fmt.Sprintf("%s(%s)", f.kind.Name(), f.label)
	}

	keys := f.data.Keys()
	if idf, ok := f.kind.(IdentifyingFields); ok {
		keys = idf.IdentifyingFields()
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := f.data.Get(k)
		if !ok {
			continue
		}
		parts = append(parts, k+"="+formatValue(v))
	}
	return fmt.Sprintf("%s(%s)", f.kind.Name(), strings.Join(parts, ", "))
}

func formatValue(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRRef:
		return val.Target.String()
	case ir.IRUnresolvable:
		return "unresolvable " + val.Target.String()
	default:
		b, err := ir.MarshalIRValue(v)
		if err != nil {
			return fmt.Sprintf("%T", v)
		}
		return string(b)
	}
}
