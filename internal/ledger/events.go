package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Meghavibansod/HealthLedger/pkg/monitoring"
	"github.com/Meghavibansod/HealthLedger/pkg/state"
	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

// appendEvent stages an audit event in the batch that carries the state
// change it describes, so the event and the mutation commit together. The
// caller must hold the write lock.
func (l *Ledger) appendEvent(batch *state.Batch, kind types.EventKind, recordID types.RecordID, caller types.Identity, ts time.Time, details map[string]string) error {
	seq, err := l.nextSeq(batch)
	if err != nil {
		return err
	}

	event := types.AuditEvent{
		EventID:   uuid.New().String(),
		Seq:       seq,
		Kind:      kind,
		RecordID:  recordID,
		Caller:    caller,
		Details:   details,
		Timestamp: ts,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return types.NewInternalError(types.ErrCodeStorageFailure, "failed to encode audit event", err)
	}
	batch.Put(auditKey(seq), value)
	monitoring.RecordAuditEvent(string(kind))
	return nil
}

// AuditHistory returns committed audit events in sequence order. Only the
// administrator may read the history. A non-zero recordID filters events
// to that record; limit caps the result when positive.
func (l *Ledger) AuditHistory(caller types.Identity, recordID types.RecordID, limit int) ([]types.AuditEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ok, err := l.isAdmin(caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.log.Security("audit_history_denied", caller.String(), nil)
		return nil, types.NewUnauthorizedError(types.ErrCodeUnauthorized, "only the administrator can read the audit history")
	}

	var events []types.AuditEvent
	err = l.store.Iterate(auditPrefix, func(_ string, value []byte) bool {
		var event types.AuditEvent
		if json.Unmarshal(value, &event) != nil {
			return true
		}
		if !recordID.IsZero() && event.RecordID != recordID {
			return true
		}
		events = append(events, event)
		return limit <= 0 || len(events) < limit
	})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeStorageFailure, "failed to scan audit history", err)
	}
	return events, nil
}
