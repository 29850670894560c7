// Package leveldb provides the embedded durable state store. It is the
// default backend for single-node deployments: no external service, one
// data directory, atomic batch writes.
package leveldb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Meghavibansod/HealthLedger/pkg/state"
)

// Store is a state.Store backed by a LevelDB database.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Get returns the value stored at key, or nil if absent.
func (s *Store) Get(key string) ([]byte, error) {
	value, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get %s: %w", key, err)
	}
	return value, nil
}

// Apply writes the batch as a single synced LevelDB batch, so a ledger
// commit is all-or-nothing on disk.
func (s *Store) Apply(batch *state.Batch) error {
	wb := new(leveldb.Batch)
	for _, op := range batch.Ops() {
		wb.Put([]byte(op.Key), op.Value)
	}
	if err := s.db.Write(wb, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb batch write: %w", err)
	}
	return nil
}

// Iterate visits keys with the prefix in key order.
func (s *Store) Iterate(prefix string, fn func(key string, value []byte) bool) error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if !fn(string(iter.Key()), value) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("leveldb iterate %s: %w", prefix, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
