// Package postgres provides the shared-database state store. The whole
// world state lives in one key-value table; a ledger commit is one
// transaction of upserts.
package postgres

import (
	"database/sql"
	"fmt"

	"github.com/Meghavibansod/HealthLedger/pkg/database"
	"github.com/Meghavibansod/HealthLedger/pkg/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_state (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store is a state.Store backed by a PostgreSQL table.
type Store struct {
	db *database.DB
}

// New creates the store and ensures its schema exists.
func New(db *database.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger_state schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value stored at key, or nil if absent.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM ledger_state WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, nil
}

// Apply commits every put in the batch in a single transaction.
func (s *Store) Apply(batch *state.Batch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO ledger_state (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`)
	if err != nil {
		return fmt.Errorf("postgres prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, op := range batch.Ops() {
		if _, err := stmt.Exec(op.Key, op.Value); err != nil {
			return fmt.Errorf("postgres upsert %s: %w", op.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres commit: %w", err)
	}
	return nil
}

// Iterate visits keys with the prefix in key order.
func (s *Store) Iterate(prefix string, fn func(key string, value []byte) bool) error {
	rows, err := s.db.Query(
		`SELECT key, value FROM ledger_state WHERE key LIKE $1 || '%' ORDER BY key`, prefix)
	if err != nil {
		return fmt.Errorf("postgres iterate %s: %w", prefix, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("postgres scan: %w", err)
		}
		if !fn(key, value) {
			break
		}
	}
	return rows.Err()
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
