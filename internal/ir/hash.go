package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix leaves room for
// changing the encoding without colliding with old hashes.
const (
	DomainExpression = "recache/expression/v1"
	DomainTransform  = "recache/transform/v1"
	DomainRecord     = "recache/record/v1"
	DomainState      = "recache/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data from running into each other.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash hashes the canonical JSON of v under a domain prefix.
func ContentHash(domain string, v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RecordHash returns the content hash of a record's normalized form.
// Two records with the same observable state hash the same.
func RecordHash(r *Record) (string, error) {
	return ContentHash(DomainRecord, EncodeRecord(r.Normalized()))
}
