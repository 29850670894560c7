package ledger

import (
	"encoding/json"

	"github.com/Meghavibansod/HealthLedger/pkg/state"
	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

// CreateRecord inserts a new record. The caller must be the administrator
// or a registered doctor. A recordId can be created exactly once; later
// attempts fail with RecordAlreadyExists no matter who calls or with what
// arguments.
func (l *Ledger) CreateRecord(caller types.Identity, recordID types.RecordID, patient types.Identity, cid, meta string) (*types.Record, error) {
	if recordID.IsZero() {
		return nil, types.NewValidationError(types.ErrCodeInvalidRecordID, "record id must not be zero")
	}
	if patient.IsZero() {
		return nil, types.NewValidationError(types.ErrCodeInvalidIdentity, "patient identity must not be zero")
	}
	if cid == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "cid must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireIssuer(caller, "create_record", recordID); err != nil {
		return nil, err
	}

	existing, err := l.getRecord(recordID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, types.NewConflictError(types.ErrCodeRecordAlreadyExists,
			"record "+recordID.String()+" already exists")
	}

	now := l.now()
	rec := &types.Record{
		RecordID:  recordID,
		Patient:   patient,
		CreatedBy: caller,
		CID:       cid,
		Meta:      meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeStorageFailure, "failed to encode record", err)
	}

	batch := state.NewBatch()
	batch.Put(recordKey(recordID), value)
	if err := l.appendEvent(batch, types.EventRecordCreated, recordID, caller, now, map[string]string{
		"patient": patient.String(),
		"cid":     cid,
	}); err != nil {
		return nil, err
	}

	if err := l.store.Apply(batch); err != nil {
		return nil, types.NewInternalError(types.ErrCodeStorageFailure, "failed to commit record", err)
	}

	l.log.Audit(caller.String(), "create_record", recordID.String(), true, map[string]interface{}{
		"patient": patient.String(),
	})
	return rec, nil
}

// UpdateRecord overwrites a record's content pointer and metadata. The
// caller must be the administrator, the record's creator, or a registered
// doctor. Patient, createdBy and createdAt never change.
func (l *Ledger) UpdateRecord(caller types.Identity, recordID types.RecordID, cid, meta string) (*types.Record, error) {
	if cid == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "cid must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.getRecord(recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, types.NewNotFoundError(types.ErrCodeRecordNotFound,
			"record "+recordID.String()+" does not exist")
	}

	if caller != rec.CreatedBy {
		if err := l.requireIssuer(caller, "update_record", recordID); err != nil {
			return nil, err
		}
	}

	now := l.now()
	rec.CID = cid
	rec.Meta = meta
	rec.UpdatedAt = now

	value, err := json.Marshal(rec)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeStorageFailure, "failed to encode record", err)
	}

	batch := state.NewBatch()
	batch.Put(recordKey(recordID), value)
	if err := l.appendEvent(batch, types.EventRecordUpdated, recordID, caller, now, map[string]string{
		"cid": cid,
	}); err != nil {
		return nil, err
	}

	if err := l.store.Apply(batch); err != nil {
		return nil, types.NewInternalError(types.ErrCodeStorageFailure, "failed to commit record update", err)
	}

	l.log.Audit(caller.String(), "update_record", recordID.String(), true, nil)
	return rec, nil
}

// GetRecord returns a record to an authorized reader. Readers are the
// record's patient, the administrator, registered doctors, and explicit
// grantees. Callers without implicit read rights are told Unauthorized
// whether or not the record exists, so they cannot probe for identifiers;
// administrators and doctors get RecordNotFound for a missing record.
func (l *Ledger) GetRecord(caller types.Identity, recordID types.RecordID) (*types.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, err := l.getRecord(recordID)
	if err != nil {
		return nil, err
	}

	privileged, err := l.isImplicitReader(caller)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		if privileged {
			return nil, types.NewNotFoundError(types.ErrCodeRecordNotFound,
				"record "+recordID.String()+" does not exist")
		}
		return nil, types.NewUnauthorizedError(types.ErrCodeUnauthorized, "caller is not authorized to read this record")
	}

	if privileged || caller == rec.Patient {
		return rec, nil
	}

	granted, err := l.hasGrant(recordID, caller)
	if err != nil {
		return nil, err
	}
	if !granted {
		l.log.Security("read_denied", caller.String(), map[string]interface{}{
			"record_id": recordID.String(),
		})
		return nil, types.NewUnauthorizedError(types.ErrCodeUnauthorized, "caller is not authorized to read this record")
	}
	return rec, nil
}

// requireIssuer fails with Unauthorized unless caller is the administrator
// or a registered doctor. The caller must hold the lock.
func (l *Ledger) requireIssuer(caller types.Identity, action string, recordID types.RecordID) error {
	ok, err := l.isAdmin(caller)
	if err != nil {
		return err
	}
	if !ok {
		ok, err = l.isDoctor(caller)
		if err != nil {
			return err
		}
	}
	if !ok {
		l.log.Security(action+"_denied", caller.String(), map[string]interface{}{
			"record_id": recordID.String(),
		})
		return types.NewUnauthorizedError(types.ErrCodeUnauthorized, "caller is not an administrator or registered doctor")
	}
	return nil
}

// isImplicitReader reports whether identity may read every record without
// an explicit grant. The caller must hold the lock.
func (l *Ledger) isImplicitReader(identity types.Identity) (bool, error) {
	ok, err := l.isAdmin(identity)
	if err != nil || ok {
		return ok, err
	}
	return l.isDoctor(identity)
}
