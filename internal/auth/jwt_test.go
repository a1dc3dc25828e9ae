package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec() *TokenCodec {
	return NewTokenCodec("test-secret-key-for-testing", time.Hour)
}

func TestIssueAndVerify(t *testing.T) {
	codec := newTestCodec()
	issuedAt := time.Now().UTC()

	token, err := codec.Issue("user-123", issuedAt)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "natours", claims.Issuer)
	assert.WithinDuration(t, issuedAt, claims.IssuedAt.Time, time.Second)
	assert.WithinDuration(t, issuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestVerify_Expired(t *testing.T) {
	codec := NewTokenCodec("test-secret-key-for-testing", time.Minute)

	// Issued far enough in the past that it is already expired.
	token, err := codec.Issue("user-123", time.Now().Add(-2*time.Minute))
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestVerify_WrongSecret(t *testing.T) {
	codec := newTestCodec()
	other := NewTokenCodec("a-completely-different-secret", time.Hour)

	token, err := codec.Issue("user-123", time.Now())
	require.NoError(t, err)

	claims, err := other.Verify(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestVerify_Malformed(t *testing.T) {
	codec := newTestCodec()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		claims, err := codec.Verify(token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	codec := newTestCodec()

	token, err := codec.Issue("user-123", time.Now())
	require.NoError(t, err)

	// Flip a character in the payload segment.
	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'a' {
		tampered[mid] = 'b'
	} else {
		tampered[mid] = 'a'
	}

	claims, err := codec.Verify(string(tampered))
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	codec := newTestCodec()

	// A token signed with alg "none" must never validate.
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJ1c2VyX2lkIjoidXNlci0xMjMifQ."
	claims, err := codec.Verify(unsigned)
	assert.Error(t, err)
	assert.Nil(t, claims)
}
