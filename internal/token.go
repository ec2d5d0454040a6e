package internal

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashToken digests a refresh token for at-rest storage and exact-match
// lookup. The raw-URL alphabet keeps the digest safe to embed in Redis Lua
// string matching.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
