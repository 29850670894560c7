// Package ledger implements the HealthLedger state machine: the role
// registry, the create-once record store, the per-record access control
// list, and the append-only audit history. All state lives in a
// state.Store; every mutating operation validates against current state,
// then commits its record change and audit event as one atomic batch.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Meghavibansod/HealthLedger/pkg/logger"
	"github.com/Meghavibansod/HealthLedger/pkg/state"
	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

// Ledger is the single entry point for all ledger operations. A RWMutex
// serializes mutations so concurrent same-key calls never interleave
// partial writes; reads share the read lock.
type Ledger struct {
	mu    sync.RWMutex
	store state.Store
	log   *logger.Logger
	now   func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source. Tests use this to pin
// createdAt/updatedAt values.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates a ledger over an existing state store. State already present
// in the store (from a previous process lifetime) is picked up as-is.
func New(store state.Store, log *logger.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize sets the administrator identity. It succeeds exactly once per
// store lifetime; any later call fails with AlreadyInitialized regardless
// of the identity supplied.
func (l *Ledger) Initialize(admin types.Identity) error {
	if admin.IsZero() {
		return types.NewValidationError(types.ErrCodeInvalidIdentity, "admin identity must not be zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.store.Get(adminKey)
	if err != nil {
		return types.NewInternalError(types.ErrCodeStorageFailure, "failed to read admin state", err)
	}
	if existing != nil {
		return types.NewAlreadyInitializedError("ledger administrator is already set")
	}

	value, err := json.Marshal(admin)
	if err != nil {
		return types.NewInternalError(types.ErrCodeStorageFailure, "failed to encode admin identity", err)
	}

	batch := state.NewBatch()
	batch.Put(adminKey, value)
	if err := l.store.Apply(batch); err != nil {
		return types.NewInternalError(types.ErrCodeStorageFailure, "failed to commit admin state", err)
	}

	l.log.WithComponent("ledger").WithField("admin", admin.String()).Info("Ledger initialized")
	return nil
}

// Initialized reports whether the administrator has been set.
func (l *Ledger) Initialized() (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	existing, err := l.store.Get(adminKey)
	if err != nil {
		return false, types.NewInternalError(types.ErrCodeStorageFailure, "failed to read admin state", err)
	}
	return existing != nil, nil
}

// admin loads the administrator identity. The caller must hold the lock.
func (l *Ledger) admin() (types.Identity, error) {
	value, err := l.store.Get(adminKey)
	if err != nil {
		return types.ZeroIdentity, types.NewInternalError(types.ErrCodeStorageFailure, "failed to read admin state", err)
	}
	if value == nil {
		return types.ZeroIdentity, types.NewUnauthorizedError(types.ErrCodeNotInitialized, "ledger is not initialized")
	}
	var admin types.Identity
	if err := json.Unmarshal(value, &admin); err != nil {
		return types.ZeroIdentity, types.NewInternalError(types.ErrCodeStorageFailure, "corrupt admin state", err)
	}
	return admin, nil
}

// isAdmin reports whether identity is the administrator. The caller must
// hold the lock.
func (l *Ledger) isAdmin(identity types.Identity) (bool, error) {
	admin, err := l.admin()
	if err != nil {
		if types.IsUnauthorized(err) {
			return false, nil
		}
		return false, err
	}
	return identity == admin, nil
}

// isDoctor reports whether identity is a registered doctor. The caller
// must hold the lock.
func (l *Ledger) isDoctor(identity types.Identity) (bool, error) {
	value, err := l.store.Get(doctorKey(identity))
	if err != nil {
		return false, types.NewInternalError(types.ErrCodeStorageFailure, "failed to read doctor state", err)
	}
	return value != nil, nil
}

// IsAdmin reports whether identity is the ledger administrator.
func (l *Ledger) IsAdmin(identity types.Identity) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isAdmin(identity)
}

// IsDoctor reports whether identity is a registered doctor.
func (l *Ledger) IsDoctor(identity types.Identity) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isDoctor(identity)
}

// getRecord loads a record, or nil if absent. The caller must hold the lock.
func (l *Ledger) getRecord(recordID types.RecordID) (*types.Record, error) {
	value, err := l.store.Get(recordKey(recordID))
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeStorageFailure, "failed to read record state", err)
	}
	if value == nil {
		return nil, nil
	}
	var rec types.Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, types.NewInternalError(types.ErrCodeStorageFailure,
			fmt.Sprintf("corrupt record state for %s", recordID), err)
	}
	return &rec, nil
}

// nextSeq reserves the next audit sequence number and stages the counter
// update in the batch. The caller must hold the write lock.
func (l *Ledger) nextSeq(batch *state.Batch) (uint64, error) {
	value, err := l.store.Get(auditSeqKey)
	if err != nil {
		return 0, types.NewInternalError(types.ErrCodeStorageFailure, "failed to read audit sequence", err)
	}
	var seq uint64
	if value != nil {
		seq, err = strconv.ParseUint(string(value), 10, 64)
		if err != nil {
			return 0, types.NewInternalError(types.ErrCodeStorageFailure, "corrupt audit sequence", err)
		}
	}
	seq++
	batch.Put(auditSeqKey, []byte(strconv.FormatUint(seq, 10)))
	return seq, nil
}
