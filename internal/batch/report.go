package batch

import (
	"github.com/roach88/prepop/internal/fixture"
)

// Action names a batch operation.
type Action string

const (
	ActionLoad   Action = "load"
	ActionUnload Action = "unload"
)

// Entry records the outcome of one fixture in a batch.
type Entry struct {
	Fixture *fixture.Fixture
	Outcome fixture.Outcome
}

// Failure identifies the fixture that aborted a load and the dependency it
// could not resolve.
type Failure struct {
	Fixture    *fixture.Fixture
	Dependency *fixture.Fixture
}

// Report is the aggregate result of one batch call.
//
// Entries holds every fixture processed before the batch ended. When
// RolledBack is set none of them were committed.
type Report struct {
	BatchID    string
	Action     Action
	Entries    []Entry
	Failure    *Failure
	RolledBack bool
}

// OK reports whether the batch committed.
func (r *Report) OK() bool {
	return r.Failure == nil && !r.RolledBack
}

// Count returns the number of entries with the given outcome.
func (r *Report) Count(o fixture.Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == o {
			n++
		}
	}
	return n
}
