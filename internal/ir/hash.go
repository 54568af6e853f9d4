package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRecord = "prepop/record/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordIdentity computes the identity hash of a record from its kind and
// identifying fields. Two records of one kind with equal identifying fields
// hash the same regardless of key order or NFC form.
// Returns error if identity cannot be canonically marshaled, e.g. because
// it still holds an unresolvable marker.
func RecordIdentity(kind string, identity IRObject) (string, error) {
	obj := NewIRObject(
		O("kind", IRString(kind)),
		O("identity", identity),
	)

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordIdentity: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainRecord, canonical), nil
}

// MustRecordIdentity is like RecordIdentity but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordIdentity(kind string, identity IRObject) string {
	id, err := RecordIdentity(kind, identity)
	if err != nil {
		panic(err)
	}
	return id
}
