package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// resetSecretBytes is the entropy of a reset secret before hex encoding.
const resetSecretBytes = 32

// NewResetSecret generates a cryptographically random reset secret and its
// storable digest. The plaintext is handed to the account owner exactly once;
// only the digest is ever persisted.
func NewResetSecret() (plaintext, digest string, err error) {
	buf := make([]byte, resetSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate reset secret: %w", err)
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, HashResetSecret(plaintext), nil
}

// HashResetSecret returns the SHA-256 hex digest of a reset secret. The same
// one-way function is applied to a presented secret when resolving it, so a
// plaintext never needs to be stored for comparison.
func HashResetSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
