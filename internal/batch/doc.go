// Package batch applies load or unload across an ordered list of fixtures
// inside one transaction.
//
// Load stops at the first fixture with an unresolved dependency, rolls the
// whole batch back and reports the offending fixture. Unload first forces
// resolution of every fixture, then unloads them in order, so a fixture
// whose references point at records later in the same batch still resolves
// before those records are deleted.
//
// The orchestrator never logs through the global logger. Pass one with
// WithLogger; the default discards.
package batch
