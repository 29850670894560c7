package state

import (
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and single-process
// deployments that do not need durability.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get returns the value stored at key, or nil if absent.
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Apply commits every put in the batch under a single lock acquisition.
func (m *MemoryStore) Apply(batch *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range batch.Ops() {
		value := make([]byte, len(op.Value))
		copy(value, op.Value)
		m.data[op.Key] = value
	}
	return nil
}

// Iterate visits keys with the prefix in lexicographic order.
func (m *MemoryStore) Iterate(prefix string, fn func(key string, value []byte) bool) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		v, err := m.Get(k)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		if !fn(k, v) {
			return nil
		}
	}
	return nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
