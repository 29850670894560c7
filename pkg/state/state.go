// Package state defines the key-value world state the ledger core programs
// against. A backend must apply a batch atomically: either every put in the
// batch becomes visible, or none does.
package state

// Op is a single put recorded in a batch.
type Op struct {
	Key   string
	Value []byte
}

// Batch collects the puts of one ledger commit.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Put appends a put to the batch. Later puts to the same key win.
func (b *Batch) Put(key string, value []byte) {
	b.ops = append(b.ops, Op{Key: key, Value: value})
}

// Ops returns the puts in insertion order.
func (b *Batch) Ops() []Op {
	return b.ops
}

// Len returns the number of puts in the batch.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Store is the durable world state. Keys are opaque strings; iteration order
// is lexicographic by key.
type Store interface {
	// Get returns the value stored at key, or nil if the key is absent.
	Get(key string) ([]byte, error)

	// Apply commits every put in the batch atomically.
	Apply(batch *Batch) error

	// Iterate calls fn for each key with the given prefix in key order.
	// Returning false from fn stops the iteration.
	Iterate(prefix string, fn func(key string, value []byte) bool) error

	// Close releases backend resources.
	Close() error
}
