package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key builds a namespaced cache key such as "pypi:requests".
func Key(namespace string, parts ...string) string {
	return namespace + ":" + strings.Join(parts, "/")
}

// Hash computes a SHA-256 hash of data as 64 hex characters.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
