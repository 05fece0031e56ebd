package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash domains. The version suffix leaves room for algorithm changes.
const (
	DomainRecord = "nullg/record/v1"
	DomainSchema = "nullg/schema/v1"
)

// hashWithDomain returns hex(SHA256(domain || 0x00 || data)). The separator
// keeps domain and payload boundaries unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordHash is the content hash of a typed record of the given item class.
// Two records hash equal iff their canonical encodings and classes match.
func RecordHash(itemClass string, record Object) (string, error) {
	canonical, err := MarshalCanonical(Object{
		"item_class": String(itemClass),
		"record":     record,
	})
	if err != nil {
		return "", fmt.Errorf("record hash: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// SchemaHash hashes an arbitrary canonical description of a schema graph.
func SchemaHash(description Value) (string, error) {
	canonical, err := MarshalCanonical(description)
	if err != nil {
		return "", fmt.Errorf("schema hash: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// MustRecordHash panics on error. For tests and static data only.
func MustRecordHash(itemClass string, record Object) string {
	h, err := RecordHash(itemClass, record)
	if err != nil {
		panic(err)
	}
	return h
}
