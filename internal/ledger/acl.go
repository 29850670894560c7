package ledger

import (
	"encoding/json"
	"time"

	"github.com/Meghavibansod/HealthLedger/pkg/state"
	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

// aclEntry is one explicit read grant on a record.
type aclEntry struct {
	RecordID  types.RecordID `json:"record_id"`
	Grantee   types.Identity `json:"grantee"`
	GrantedBy types.Identity `json:"granted_by"`
	GrantedAt time.Time      `json:"granted_at"`
}

// GrantAccess adds grantee to a record's access control list. Only the
// record's patient or the administrator may grant: a doctor cannot share a
// patient's record with third parties on their own. Granting an existing
// grantee again is a no-op success.
func (l *Ledger) GrantAccess(caller types.Identity, recordID types.RecordID, grantee types.Identity) error {
	if grantee.IsZero() {
		return types.NewValidationError(types.ErrCodeInvalidIdentity, "grantee identity must not be zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.getRecord(recordID)
	if err != nil {
		return err
	}
	if rec == nil {
		return types.NewNotFoundError(types.ErrCodeRecordNotFound,
			"record "+recordID.String()+" does not exist")
	}

	if caller != rec.Patient {
		ok, err := l.isAdmin(caller)
		if err != nil {
			return err
		}
		if !ok {
			l.log.Security("grant_access_denied", caller.String(), map[string]interface{}{
				"record_id": recordID.String(),
				"grantee":   grantee.String(),
			})
			return types.NewUnauthorizedError(types.ErrCodeUnauthorized, "only the patient or administrator can grant access")
		}
	}

	granted, err := l.hasGrant(recordID, grantee)
	if err != nil {
		return err
	}
	if granted {
		return nil
	}

	now := l.now()
	entry := aclEntry{RecordID: recordID, Grantee: grantee, GrantedBy: caller, GrantedAt: now}
	value, err := json.Marshal(entry)
	if err != nil {
		return types.NewInternalError(types.ErrCodeStorageFailure, "failed to encode grant", err)
	}

	batch := state.NewBatch()
	batch.Put(aclKey(recordID, grantee), value)
	if err := l.appendEvent(batch, types.EventAccessGranted, recordID, caller, now, map[string]string{
		"grantee": grantee.String(),
	}); err != nil {
		return err
	}

	if err := l.store.Apply(batch); err != nil {
		return types.NewInternalError(types.ErrCodeStorageFailure, "failed to commit grant", err)
	}

	l.log.Audit(caller.String(), "grant_access", recordID.String(), true, map[string]interface{}{
		"grantee": grantee.String(),
	})
	return nil
}

// IsAuthorizedReader is the single predicate gating reads: true iff
// identity is the record's patient, the administrator, a registered
// doctor, or in the record's grant set. A nonexistent record has no
// authorized readers.
func (l *Ledger) IsAuthorizedReader(recordID types.RecordID, identity types.Identity) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, err := l.getRecord(recordID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	if identity == rec.Patient {
		return true, nil
	}
	ok, err := l.isImplicitReader(identity)
	if err != nil || ok {
		return ok, err
	}
	return l.hasGrant(recordID, identity)
}

// Grantees lists the identities explicitly granted read access to a record.
func (l *Ledger) Grantees(recordID types.RecordID) ([]types.Identity, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var grantees []types.Identity
	err := l.store.Iterate(aclPrefix+recordID.String()+":", func(_ string, value []byte) bool {
		var entry aclEntry
		if json.Unmarshal(value, &entry) == nil {
			grantees = append(grantees, entry.Grantee)
		}
		return true
	})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeStorageFailure, "failed to scan grant set", err)
	}
	return grantees, nil
}

// hasGrant reports whether identity holds an explicit grant on the record.
// The caller must hold the lock.
func (l *Ledger) hasGrant(recordID types.RecordID, identity types.Identity) (bool, error) {
	value, err := l.store.Get(aclKey(recordID, identity))
	if err != nil {
		return false, types.NewInternalError(types.ErrCodeStorageFailure, "failed to read grant state", err)
	}
	return value != nil, nil
}
