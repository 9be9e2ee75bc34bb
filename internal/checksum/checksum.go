// Package checksum provides the content hashing that gates re-embedding.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumString hashes an entity's canonical text. Two calls with the same
// entity state yield the same digest.
func SumString(text string) string {
	return Sum([]byte(text))
}
