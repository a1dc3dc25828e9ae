package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordChangedAfter(t *testing.T) {
	changed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		changedAt *time.Time
		issuedAt  time.Time
		want      bool
	}{
		{"never changed", nil, changed, false},
		{"token issued before change", &changed, changed.Add(-time.Minute), true},
		{"token issued at change instant", &changed, changed, true},
		{"token issued after change", &changed, changed.Add(time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{PasswordChangedAt: tt.changedAt}
			assert.Equal(t, tt.want, u.PasswordChangedAfter(tt.issuedAt))
		})
	}
}

func TestHasActiveResetToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hash := "deadbeef"
	future := now.Add(5 * time.Minute)
	past := now.Add(-5 * time.Minute)

	assert.False(t, (&User{}).HasActiveResetToken(now))
	assert.True(t, (&User{PasswordResetTokenHash: &hash, PasswordResetExpiresAt: &future}).HasActiveResetToken(now))
	assert.False(t, (&User{PasswordResetTokenHash: &hash, PasswordResetExpiresAt: &past}).HasActiveResetToken(now))
}

func TestUserJSON_OmitsSecrets(t *testing.T) {
	hash := "resethash"
	exp := time.Now().Add(10 * time.Minute)
	changed := time.Now()
	u := User{
		ID:                     "user-1",
		Name:                   "Ayush",
		Email:                  "ayush@example.com",
		Role:                   RoleUser,
		PasswordHash:           "$2a$12$secret",
		PasswordChangedAt:      &changed,
		PasswordResetTokenHash: &hash,
		PasswordResetExpiresAt: &exp,
		Active:                 true,
	}

	b, err := json.Marshal(u)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.NotContains(t, out, "PasswordHash")
	assert.NotContains(t, string(b), "secret")
	assert.NotContains(t, string(b), "resethash")
	assert.Equal(t, "ayush@example.com", out["email"])
}

func TestIsValidRole(t *testing.T) {
	for _, role := range ValidRoles() {
		assert.True(t, IsValidRole(role))
	}
	assert.False(t, IsValidRole("superadmin"))
	assert.False(t, IsValidRole(""))
	assert.Equal(t, RoleUser, DefaultRole)
}
