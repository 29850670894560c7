package ledger

import (
	"encoding/json"
	"time"

	"github.com/Meghavibansod/HealthLedger/pkg/state"
	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

// doctorEntry is the stored registration of a trusted issuer.
type doctorEntry struct {
	Doctor  types.Identity `json:"doctor"`
	AddedBy types.Identity `json:"added_by"`
	AddedAt time.Time      `json:"added_at"`
}

// AddDoctor registers doctor as a trusted issuer. Only the administrator
// may call it. Re-adding an existing doctor is a no-op success and leaves
// the original registration untouched.
func (l *Ledger) AddDoctor(caller, doctor types.Identity) error {
	if doctor.IsZero() {
		return types.NewValidationError(types.ErrCodeInvalidIdentity, "doctor identity must not be zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	admin, err := l.admin()
	if err != nil {
		return err
	}
	if caller != admin {
		l.log.Security("add_doctor_denied", caller.String(), map[string]interface{}{
			"doctor": doctor.String(),
		})
		return types.NewUnauthorizedError(types.ErrCodeUnauthorized, "only the administrator can register doctors")
	}

	registered, err := l.isDoctor(doctor)
	if err != nil {
		return err
	}
	if registered {
		return nil
	}

	now := l.now()
	entry := doctorEntry{Doctor: doctor, AddedBy: caller, AddedAt: now}
	value, err := json.Marshal(entry)
	if err != nil {
		return types.NewInternalError(types.ErrCodeStorageFailure, "failed to encode doctor entry", err)
	}

	batch := state.NewBatch()
	batch.Put(doctorKey(doctor), value)
	if err := l.appendEvent(batch, types.EventDoctorAdded, types.ZeroRecordID, caller, now, map[string]string{
		"doctor": doctor.String(),
	}); err != nil {
		return err
	}

	if err := l.store.Apply(batch); err != nil {
		return types.NewInternalError(types.ErrCodeStorageFailure, "failed to commit doctor registration", err)
	}

	l.log.Audit(caller.String(), "add_doctor", doctor.String(), true, nil)
	return nil
}

// Doctors returns every registered doctor identity in registration key order.
func (l *Ledger) Doctors() ([]types.Identity, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var doctors []types.Identity
	err := l.store.Iterate(doctorPrefix, func(_ string, value []byte) bool {
		var entry doctorEntry
		if json.Unmarshal(value, &entry) == nil {
			doctors = append(doctors, entry.Doctor)
		}
		return true
	})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeStorageFailure, "failed to scan doctor registry", err)
	}
	return doctors, nil
}
