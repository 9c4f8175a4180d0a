// Package hash computes the content digests used for sync change
// detection. Two digests are equal iff the underlying content is
// byte-identical; collisions are treated as never occurring.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Bytes returns the SHA-256 hex digest of data.
func Bytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// String returns the SHA-256 hex digest of the UTF-8 encoding of s.
func String(s string) string {
	return Bytes([]byte(s))
}

// Metadata returns a fallback digest derived from stable metadata fields.
// Used when an attachment file cannot be read, so one unreadable file does
// not fail the whole manifest build. The digest changes whenever any of
// the fields change, which is the best change signal available without
// the content itself.
func Metadata(id, name string, size int64) string {
	return String(fmt.Sprintf("%s|%s|%d", id, name, size))
}
