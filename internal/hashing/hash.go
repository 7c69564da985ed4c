// Package hashing computes BLAKE3 checksums for operation payloads, used by
// the log store to detect corruption.
package hashing

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3 hash of the input data
func Hash(data []byte) []byte {
	hasher := blake3.New()
	hasher.Write(data)
	return hasher.Sum(nil)
}

// HashString computes a BLAKE3 hash and returns it as a hex string
func HashString(data []byte) string {
	return hex.EncodeToString(Hash(data))
}

// Verify reports whether data matches the given hex checksum.
func Verify(data []byte, checksum string) bool {
	return HashString(data) == checksum
}
