package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// KeyVersion is bumped whenever the encoding of cached graphs changes.
const KeyVersion = "v1"

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// APIKey is the key of a graph built from the raw documentation bytes raw
// and merged with the manifest described by descriptor. Identical inputs
// always build identical graphs, so the key is purely content based.
func APIKey(raw []byte, descriptor any) string {
	return hashKey("api:"+KeyVersion, Hash(raw), descriptor)
}
