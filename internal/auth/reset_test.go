package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResetSecret(t *testing.T) {
	secret, digest, err := NewResetSecret()
	require.NoError(t, err)

	// 32 random bytes, hex encoded.
	assert.Len(t, secret, 64)
	_, err = hex.DecodeString(secret)
	assert.NoError(t, err)

	// The stored digest must match what a later presentation hashes to,
	// and must not be the secret itself.
	assert.Equal(t, digest, HashResetSecret(secret))
	assert.NotEqual(t, secret, digest)
}

func TestNewResetSecret_Unique(t *testing.T) {
	a, _, err := NewResetSecret()
	require.NoError(t, err)
	b, _, err := NewResetSecret()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashResetSecret_Deterministic(t *testing.T) {
	assert.Equal(t, HashResetSecret("abc"), HashResetSecret("abc"))
	assert.NotEqual(t, HashResetSecret("abc"), HashResetSecret("abd"))

	// sha256 hex digest is always 64 characters.
	assert.Len(t, HashResetSecret("anything"), 64)
}
