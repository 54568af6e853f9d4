package declare

import (
	"fmt"

	"github.com/roach88/prepop/internal/fixture"
	"github.com/roach88/prepop/internal/ir"
)

// Kinds maps kind names to their implementations.
type Kinds map[string]fixture.Kind

// LoadFiles reads every module and builds their fixtures.
func LoadFiles(kinds Kinds, paths ...string) ([]*fixture.Fixture, error) {
	modules := make([]*Module, 0, len(paths))
	for _, path := range paths {
		m, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return Build(kinds, modules...)
}

// entry is a declaration with its module, for error reporting.
type entry struct {
	module *Module
	decl   Declaration
}

// Build links the declarations of all modules into fixtures, in
// declaration order. A referenced fixture is constructed before the
// fixtures referring to it, so each IRRef points at its final target.
func Build(kinds Kinds, modules ...*Module) ([]*fixture.Fixture, error) {
	var entries []entry
	labels := make(map[string]int) // label -> index into entries

	for _, m := range modules {
		for _, d := range m.Declarations {
			if _, ok := kinds[d.Kind]; !ok {
				return nil, m.errorf(d, "unknown kind %q", d.Kind)
			}
			if d.Label != "" {
				if prev, dup := labels[d.Label]; dup {
					p := entries[prev]
					return nil, m.errorf(d, "duplicate label %q, first declared in %s", d.Label, position(p))
				}
				labels[d.Label] = len(entries)
			}
			entries = append(entries, entry{module: m, decl: d})
		}
	}

	graph := newRefGraph()
	for _, e := range entries {
		for _, ref := range e.decl.Refs {
			if _, ok := labels[ref]; !ok {
				return nil, e.module.errorf(e.decl, "reference to unknown label %q", ref)
			}
		}
		if e.decl.Label != "" {
			graph.addNode(e.decl.Label, e.decl.Refs)
		}
	}
	if cycles := graph.findCycles(); len(cycles) > 0 {
		return nil, &CycleError{Path: cycles[0]}
	}

	b := &builder{
		kinds:   kinds,
		entries: entries,
		labels:  labels,
		built:   make(map[int]*fixture.Fixture, len(entries)),
	}
	fixtures := make([]*fixture.Fixture, len(entries))
	for i := range entries {
		f, err := b.build(i)
		if err != nil {
			return nil, err
		}
		fixtures[i] = f
	}
	return fixtures, nil
}

type builder struct {
	kinds   Kinds
	entries []entry
	labels  map[string]int
	built   map[int]*fixture.Fixture
}

// build constructs entry i, constructing its referents first. The graph is
// acyclic, so the recursion terminates.
func (b *builder) build(i int) (*fixture.Fixture, error) {
	if f, ok := b.built[i]; ok {
		return f, nil
	}

	e := b.entries[i]
	data := ir.NewIRObject()
	if e.decl.data != nil {
		v, err := convert(e.decl.data, func(label string) (ir.IRValue, error) {
			target, err := b.build(b.labels[label])
			if err != nil {
				return nil, err
			}
			return fixture.Ref(target), nil
		})
		if err != nil {
			return nil, e.module.errorf(e.decl, "%v", err)
		}
		obj, ok := v.(ir.IRObject)
		if !ok {
			return nil, e.module.errorf(e.decl, "data must be a mapping")
		}
		data = obj
	}

	var opts []fixture.Option
	if e.decl.Label != "" {
		opts = append(opts, fixture.WithLabel(e.decl.Label))
	}
	f := fixture.New(b.kinds[e.decl.Kind], data, opts...)
	b.built[i] = f
	return f, nil
}

func position(e entry) string {
	if e.decl.Line > 0 {
		return fmt.Sprintf("%s:%d", e.module.Name, e.decl.Line)
	}
	return fmt.Sprintf("%s: fixtures[%d]", e.module.Name, e.decl.index)
}
