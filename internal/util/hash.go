package util

import (
	"crypto/sha256"
	"encoding/hex"
)

func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashJSON hashes the compact canonical encoding of value, so field order
// and map iteration order do not affect the result.
func HashJSON(value any) (string, error) {
	data, err := CompactCanonicalJSON(value)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}
