package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/prepop/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// identity builds a single-field username identity.
func identity(username string) ir.IRObject {
	return ir.NewIRObject(ir.O("username", ir.IRString(username)))
}
