package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// IdentityLength is the byte width of a caller address.
const IdentityLength = 20

// RecordIDLength is the byte width of a record identifier.
const RecordIDLength = 32

// Identity is an opaque, globally unique caller handle. Equality is exact
// byte equality; the zero value is never a valid participant.
type Identity [IdentityLength]byte

// ZeroIdentity is the invalid all-zero identity.
var ZeroIdentity Identity

// ParseIdentity parses a 0x-prefixed 40-hex-digit address.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, ok := strip0x(s)
	if !ok || len(raw) != IdentityLength*2 {
		return id, NewValidationError(ErrCodeInvalidIdentity,
			fmt.Sprintf("identity must be a 0x-prefixed %d-hex-digit address, got %q", IdentityLength*2, s))
	}
	if _, err := hex.Decode(id[:], []byte(raw)); err != nil {
		return Identity{}, NewValidationError(ErrCodeInvalidIdentity,
			fmt.Sprintf("identity %q is not valid hex", s))
	}
	return id, nil
}

// MustIdentity is ParseIdentity for tests and static wiring; it panics on error.
func MustIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether the identity is the invalid zero address.
func (id Identity) IsZero() bool {
	return id == ZeroIdentity
}

func (id Identity) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// MarshalJSON renders the identity as its lowercase hex string.
func (id Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts a 0x-prefixed hex string.
func (id *Identity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseIdentity(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// RecordID is the fixed-width key into the record store.
type RecordID [RecordIDLength]byte

// ZeroRecordID is the all-zero record identifier.
var ZeroRecordID RecordID

// ParseRecordID parses a 0x-prefixed 64-hex-digit identifier. Inputs that are
// not already in raw form must go through DeriveRecordID instead.
func ParseRecordID(s string) (RecordID, error) {
	var rid RecordID
	raw, ok := strip0x(s)
	if !ok || len(raw) != RecordIDLength*2 {
		return rid, NewValidationError(ErrCodeInvalidRecordID,
			fmt.Sprintf("record id must be a 0x-prefixed %d-hex-digit value, got %q", RecordIDLength*2, s))
	}
	if _, err := hex.Decode(rid[:], []byte(raw)); err != nil {
		return RecordID{}, NewValidationError(ErrCodeInvalidRecordID,
			fmt.Sprintf("record id %q is not valid hex", s))
	}
	return rid, nil
}

// DeriveRecordID maps a caller-supplied record name to its identifier. A name
// already formatted as a 0x-prefixed 32-byte hex value passes through verbatim;
// any other name is hashed with Keccak-256 over its UTF-8 bytes. This matches
// the derivation the original deployment tooling applied, so identifiers remain
// interoperable across toolchains.
func DeriveRecordID(name string) (RecordID, error) {
	if name == "" {
		return RecordID{}, NewValidationError(ErrCodeInvalidRecordID, "record name must not be empty")
	}
	if raw, ok := strip0x(name); ok && len(raw) == RecordIDLength*2 {
		return ParseRecordID(name)
	}
	var rid RecordID
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	copy(rid[:], h.Sum(nil))
	return rid, nil
}

// IsZero reports whether the record id is all zeros.
func (r RecordID) IsZero() bool {
	return r == ZeroRecordID
}

func (r RecordID) String() string {
	return "0x" + hex.EncodeToString(r[:])
}

// MarshalJSON renders the record id as its lowercase hex string.
func (r RecordID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts a 0x-prefixed hex string.
func (r *RecordID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRecordID(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func strip0x(s string) (string, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:], true
	}
	return s, false
}
