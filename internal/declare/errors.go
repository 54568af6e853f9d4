package declare

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a problem with one declaration.
type Error struct {
	Module  string
	Index   int // position in the module's fixtures list
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Module, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: fixtures[%d]: %s", e.Module, e.Index, e.Message)
}

// CycleError reports labels that reference each other in a loop. Such
// fixtures could never be resolved, since each needs the other stored
// first.
type CycleError struct {
	Path []string // e.g. ["a", "b", "a"]
}

func (e *CycleError) Error() string {
	return "reference cycle: " + strings.Join(e.Path, " -> ")
}

// IsCycle reports whether err is a reference cycle.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}
