// Package cache provides hash-keyed result caches for extracted receipts.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives the cache key for a receipt URL: the hex SHA-256 digest of the
// raw URL string, so equal URLs always collide and unequal ones almost never.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
