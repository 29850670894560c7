package types

import "time"

// Record is the ledger's unit of stored state: an opaque off-chain content
// pointer plus ownership and audit metadata. Patient, CreatedBy and CreatedAt
// are immutable for the record's lifetime; CID and Meta change only through
// an authorized update.
type Record struct {
	RecordID  RecordID  `json:"record_id"`
	Patient   Identity  `json:"patient"`
	CreatedBy Identity  `json:"created_by"`
	CID       string    `json:"cid"`
	Meta      string    `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventKind identifies the operation an audit event describes.
type EventKind string

const (
	EventDoctorAdded   EventKind = "doctor_added"
	EventRecordCreated EventKind = "record_created"
	EventRecordUpdated EventKind = "record_updated"
	EventAccessGranted EventKind = "access_granted"
)

// AuditEvent is one entry of the append-only ledger history. Seq is a
// process-wide commit sequence number; the history can be replayed in Seq
// order to reconstruct all state transitions without re-reading state.
type AuditEvent struct {
	EventID   string            `json:"event_id"`
	Seq       uint64            `json:"seq"`
	Kind      EventKind         `json:"kind"`
	RecordID  RecordID          `json:"record_id,omitempty"`
	Caller    Identity          `json:"caller"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
