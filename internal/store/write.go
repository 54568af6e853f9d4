package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/prepop/internal/ir"
)

// ErrDuplicate is returned by InsertRecord when a record with the same kind
// and identity already exists.
var ErrDuplicate = errors.New("record already exists")

// InsertRecord stores a new record and returns it.
//
// The record id comes from the store's IDGenerator and seq is one past the
// highest seq in use. Identity and fields are stored as canonical JSON.
// Both must be free of references and unresolvable markers.
func (s *Store) InsertRecord(ctx context.Context, kind string, identity, fields ir.IRObject) (Record, error) {
	hash, err := ir.RecordIdentity(kind, identity)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	identityJSON, err := marshalObject(identity)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: identity: %w", err)
	}
	fieldsJSON, err := marshalObject(fields)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: fields: %w", err)
	}

	q := s.conn(ctx)

	var seq int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM records`).Scan(&seq); err != nil {
		return Record{}, fmt.Errorf("insert record: next seq: %w", err)
	}

	rec := Record{
		ID:           s.ids.Generate(),
		Kind:         kind,
		IdentityHash: hash,
		Identity:     identity,
		Fields:       fields,
		Seq:          seq,
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO records
		(id, kind, identity_hash, identity, fields, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Kind,
		rec.IdentityHash,
		identityJSON,
		fieldsJSON,
		rec.Seq,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return Record{}, fmt.Errorf("insert record %s: %w", kind, ErrDuplicate)
		}
		return Record{}, fmt.Errorf("insert record: %w", err)
	}

	return rec, nil
}

// DeleteRecord removes the record with the given kind and identity.
// Returns whether a record was deleted; deleting an absent record is not an
// error.
func (s *Store) DeleteRecord(ctx context.Context, kind string, identity ir.IRObject) (bool, error) {
	hash, err := ir.RecordIdentity(kind, identity)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}

	result, err := s.conn(ctx).ExecContext(ctx, `
		DELETE FROM records
		WHERE kind = ? AND identity_hash = ?
	`, kind, hash)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record: rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
