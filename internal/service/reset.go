package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayushnagarcodes/natours/internal/auth"
	"github.com/ayushnagarcodes/natours/internal/domain"
	"github.com/ayushnagarcodes/natours/internal/repository"
	apperrors "github.com/ayushnagarcodes/natours/pkg/errors"
)

// DefaultResetWindow is how long a reset secret stays valid.
const DefaultResetWindow = 10 * time.Minute

// ResetTokenManager owns the password-reset secret lifecycle: it mints a
// one-time secret, persists only its digest plus an expiry on the user
// record, and later resolves a presented secret back to that record.
type ResetTokenManager struct {
	users  repository.UserRepository
	window time.Duration
}

// NewResetTokenManager creates a manager with the given validity window.
// A non-positive window falls back to DefaultResetWindow.
func NewResetTokenManager(users repository.UserRepository, window time.Duration) *ResetTokenManager {
	if window <= 0 {
		window = DefaultResetWindow
	}
	return &ResetTokenManager{users: users, window: window}
}

// Window returns the configured validity window.
func (m *ResetTokenManager) Window() time.Duration {
	return m.window
}

// Generate mints a reset secret for the user, stores its digest and expiry,
// and returns the plaintext secret together with the digest. The plaintext
// is returned exactly once and never persisted.
func (m *ResetTokenManager) Generate(ctx context.Context, user *domain.User) (secret, digest string, err error) {
	secret, digest, err = auth.NewResetSecret()
	if err != nil {
		return "", "", err
	}

	expiresAt := time.Now().UTC().Add(m.window)
	if err := m.users.SetResetToken(ctx, user.ID, digest, expiresAt); err != nil {
		return "", "", fmt.Errorf("store reset token: %w", err)
	}

	return secret, digest, nil
}

// Resolve hashes the presented secret and returns the user holding a
// matching, unexpired digest. Expired and unknown secrets are
// indistinguishable: both yield errors.ErrNotFound.
func (m *ResetTokenManager) Resolve(ctx context.Context, presented string) (*domain.User, error) {
	digest := auth.HashResetSecret(presented)

	user, err := m.users.GetByResetToken(ctx, digest, time.Now().UTC())
	if err != nil {
		return nil, apperrors.ErrNotFound
	}

	return user, nil
}
