// Package ir provides the value representation shared by every NullG package.
//
// Two shapes of data flow through the system:
//   - raw trees: the untyped JSON-shaped values returned by a decoder
//     (map[string]any, []any, string, json.Number, bool, nil)
//   - typed values: the sealed Value interface produced by the resolver
//     once a raw tree has been checked against a schema
//
// ir imports nothing internal. Typed values are never mutated after
// construction; Object.With returns a copy.
//
// Canonical JSON (MarshalCanonical) follows RFC 8785 key ordering with NFC
// string normalisation and is the only encoding used for content hashes.
package ir
