package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/prepop/internal/ir"
)

// ErrNotFound is returned when no record matches a lookup.
// Callers treat it as ordinary absence.
var ErrNotFound = errors.New("record not found")

// Record is one stored fixture record.
type Record struct {
	ID           string      `json:"id"`
	Kind         string      `json:"kind"`
	IdentityHash string      `json:"identity_hash"`
	Identity     ir.IRObject `json:"identity"`
	Fields       ir.IRObject `json:"fields"`
	Seq          int64       `json:"seq"`
}

// FindRecord retrieves the record with the given kind and identity.
// Returns ErrNotFound if there is none.
func (s *Store) FindRecord(ctx context.Context, kind string, identity ir.IRObject) (Record, error) {
	hash, err := ir.RecordIdentity(kind, identity)
	if err != nil {
		return Record{}, fmt.Errorf("find record: %w", err)
	}

	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, kind, identity_hash, identity, fields, seq
		FROM records
		WHERE kind = ? AND identity_hash = ?
	`, kind, hash)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// ListRecords returns stored records with deterministic ordering, all kinds
// when kind is empty. Results ordered by seq ASC, id ASC.
func (s *Store) ListRecords(ctx context.Context, kind string) ([]Record, error) {
	query := `
		SELECT id, kind, identity_hash, identity, fields, seq
		FROM records
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
	var args []any
	if kind != "" {
		query = `
		SELECT id, kind, identity_hash, identity, fields, seq
		FROM records
		WHERE kind = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
		args = append(args, kind)
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	// Return empty slice instead of nil for consistent JSON
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a row into a Record.
func scanRecord(row scanner) (Record, error) {
	var rec Record
	var identityJSON, fieldsJSON string

	if err := row.Scan(
		&rec.ID, &rec.Kind, &rec.IdentityHash, &identityJSON, &fieldsJSON, &rec.Seq,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan record: %w", err)
	}

	identity, err := unmarshalObject(identityJSON)
	if err != nil {
		return Record{}, fmt.Errorf("scan record %s: identity: %w", rec.ID, err)
	}
	rec.Identity = identity

	fields, err := unmarshalObject(fieldsJSON)
	if err != nil {
		return Record{}, fmt.Errorf("scan record %s: fields: %w", rec.ID, err)
	}
	rec.Fields = fields

	return rec, nil
}
