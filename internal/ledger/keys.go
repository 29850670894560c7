package ledger

import (
	"fmt"

	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

// World state key layout. A single flat namespace keyed by prefix, so every
// backend (memory, leveldb, postgres) stores the ledger identically.
const (
	adminKey       = "admin"
	doctorPrefix   = "doctor:"
	recordPrefix   = "record:"
	aclPrefix      = "acl:"
	auditPrefix    = "audit:"
	auditSeqKey    = "audit_seq"
	auditSeqFormat = "%020d"
)

func doctorKey(doctor types.Identity) string {
	return doctorPrefix + doctor.String()
}

func recordKey(recordID types.RecordID) string {
	return recordPrefix + recordID.String()
}

func aclKey(recordID types.RecordID, grantee types.Identity) string {
	return aclPrefix + recordID.String() + ":" + grantee.String()
}

func auditKey(seq uint64) string {
	return auditPrefix + fmt.Sprintf(auditSeqFormat, seq)
}
