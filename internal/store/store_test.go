package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"records",
	).Scan(&name)
	if err != nil {
		t.Errorf("records table not found after idempotent opens: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_SetsUserVersion(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

// Schema tests

func TestSchema_RecordsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "records")
	expected := []string{"id", "kind", "identity_hash", "identity", "fields", "seq"}

	for _, col := range expected {
		if !slices.Contains(columns, col) {
			t.Errorf("records table missing column %q", col)
		}
	}
}

func TestSchema_RecordsIndexes(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "records")
	if !slices.Contains(indexes, "idx_records_seq") {
		t.Error("records table missing index idx_records_seq")
	}
}

func TestConstraint_RecordsUniqueIdentity(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO records (id, kind, identity_hash, identity, fields, seq)
		VALUES ('r1', 'user', 'h1', '{}', '{}', 1)
	`)
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO records (id, kind, identity_hash, identity, fields, seq)
		VALUES ('r2', 'user', 'h1', '{}', '{}', 2)
	`)
	if err == nil {
		t.Error("expected unique constraint violation for same (kind, identity_hash)")
	}

	_, err = s.db.Exec(`
		INSERT INTO records (id, kind, identity_hash, identity, fields, seq)
		VALUES ('r3', 'team', 'h1', '{}', '{}', 3)
	`)
	if err != nil {
		t.Errorf("same hash under another kind should be allowed: %v", err)
	}
}

// Transaction tests

func TestInTx_CommitsOnSuccess(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(ctx context.Context) error {
		_, err := s.InsertRecord(ctx, "user", identity("alice"), identity("alice"))
		return err
	})
	if err != nil {
		t.Fatalf("InTx() failed: %v", err)
	}

	if _, err := s.FindRecord(ctx, "user", identity("alice")); err != nil {
		t.Errorf("record not committed: %v", err)
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.InsertRecord(ctx, "user", identity("alice"), identity("alice")); err != nil {
			return err
		}
		// Visible inside the transaction.
		if _, err := s.FindRecord(ctx, "user", identity("alice")); err != nil {
			t.Errorf("record not visible inside tx: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want %v", err, boom)
	}

	_, err = s.FindRecord(ctx, "user", identity("alice"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindRecord() after rollback error = %v, want ErrNotFound", err)
	}
}

func TestInTx_NestedJoinsOuter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	boom := errors.New("outer failure")

	err := s.InTx(ctx, func(ctx context.Context) error {
		inner := s.InTx(ctx, func(ctx context.Context) error {
			_, err := s.InsertRecord(ctx, "user", identity("alice"), identity("alice"))
			return err
		})
		if inner != nil {
			return inner
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want %v", err, boom)
	}

	_, err = s.FindRecord(ctx, "user", identity("alice"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("inner write survived outer rollback: %v", err)
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
