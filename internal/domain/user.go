package domain

import (
	"time"
)

// User represents a registered account. The password hash and the reset token
// state are never serialized to external responses.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	PasswordHash string `json:"-"`

	// PasswordChangedAt is set on every password mutation after creation.
	// Session tokens issued before it are rejected by the authorization gate.
	PasswordChangedAt *time.Time `json:"-"`

	// PasswordResetTokenHash and PasswordResetExpiresAt are either both set
	// or both nil. Only the hash of a reset secret is ever stored.
	PasswordResetTokenHash *string    `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PasswordChangedAfter reports whether the password was changed after the
// given token issue time. Tokens carry second-precision issue times, so the
// comparison is strict: a token is stale only when its issue time is not
// after the recorded change.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return !issuedAt.After(*u.PasswordChangedAt)
}

// HasActiveResetToken reports whether an unexpired reset secret is
// outstanding for this user at the given time.
func (u *User) HasActiveResetToken(now time.Time) bool {
	return u.PasswordResetTokenHash != nil &&
		u.PasswordResetExpiresAt != nil &&
		u.PasswordResetExpiresAt.After(now)
}
