package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key generates a stable cache key from its parts. Parts are joined with a
// NUL byte so ("ab", "c") and ("a", "bc") never collide.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "qaforge:v1:" + hex.EncodeToString(hash[:])
}
