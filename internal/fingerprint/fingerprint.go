// Package fingerprint derives content-addressed identifiers for binary
// assets. The full SHA-256 hex digest is kept for exact-duplicate
// comparison; a fixed-width prefix of it serves as the asset id used as
// the primary key. Both are pure functions of the bytes: filename, read
// order and timestamps never influence the result.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// IDLength is the number of hex characters of the full hash that form an
// asset id. The truncation accepts a theoretical collision risk; callers
// compare the full hash before trusting an id match.
const IDLength = 16

// HashLength is the hex length of a full SHA-256 digest.
const HashLength = 64

// chunkSize bounds how much of a file is held in memory while hashing.
const chunkSize = 32 * 1024

// HashReader consumes r in bounded chunks and returns the full content
// hash plus the number of bytes read.
func HashReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)

	n, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return "", 0, fmt.Errorf("hashing content: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// HashFile hashes the file at path without loading it into memory at once.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return HashReader(f)
}

// HashBytes hashes an in-memory payload.
func HashBytes(b []byte) (string, int64, error) {
	return HashReader(bytes.NewReader(b))
}

// AssetID derives the short id from a full content hash.
func AssetID(hash string) (string, error) {
	if !ValidHash(hash) {
		return "", fmt.Errorf("malformed content hash %q", hash)
	}
	return hash[:IDLength], nil
}

// ValidHash reports whether s looks like a full lowercase hex digest.
func ValidHash(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
