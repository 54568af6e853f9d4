// Package store provides SQLite-backed storage for fixture records.
//
// A record is one row of the records table, addressed by (kind,
// identity_hash). The identity hash is computed by ir.RecordIdentity over
// the kind's identifying fields, so two fixtures with the same identifying
// values always address the same record.
//
// # Transactions
//
// InTx runs a function inside one SQLite transaction and carries the
// transaction in the context. Every record operation called with that
// context joins the transaction; a batch therefore commits or rolls back
// as a unit. Nested InTx calls join the outer transaction.
//
// # Ordering
//
// Records carry a seq assigned at insert. ListRecords orders by
// seq ASC, id COLLATE BINARY ASC so listings are stable.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
