package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns SHA-256(input) as lowercase hex. Callers mix secrets into
// the input themselves.
func Digest(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func constantTimeCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var result byte
	for i := 0; i < len(a); i++ {
		result |= a[i] ^ b[i]
	}
	return result == 0
}
