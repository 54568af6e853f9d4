// Package fixture implements declarative records ("fixtures") and the
// dependency resolution that runs before they are loaded into or unloaded
// from a store.
//
// A Fixture is a Kind plus an ordered mapping of field name to raw value.
// Raw values may embed other fixtures as references (ir.IRRef), at any
// depth inside arrays and objects.
//
// # Resolution
//
// Resolution runs at most once per Fixture, on first demand, and its result
// is cached for the life of the instance:
//
//  1. Every embedded reference is replaced by its target's ResolveSelf
//     value: a concrete value, or an ir.IRUnresolvable marker. A target that
//     resolves to another reference is a ProgrammingError.
//  2. The first unresolvable marker in walk order (keys in declaration order,
//     elements in index order, depth-first) is recorded as the fixture's
//     unresolvable dependency.
//  3. Only when there is none, the kind's declarative field resolvers run.
//
// Resolution failures are data: they become markers and only turn into an
// UnresolvedDependencyError when Load needs to create the record.
//
// # Lifecycle
//
// Load creates the record unless Exists reports it present. Unload deletes
// the record if Exists reports it present, whether or not the fixture is
// resolvable. Exists must therefore work on partially resolved data, using
// identifying fields only.
//
// Fixtures are not safe for concurrent use.
package fixture
