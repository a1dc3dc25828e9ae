package repository

import (
	"context"
	"time"

	"github.com/ayushnagarcodes/natours/internal/domain"
)

// UserRepository defines the persistence contract for user records. Lookups
// return only active accounts, mirroring the soft-delete semantics of
// Deactivate. Password and reset-token state is mutated through dedicated,
// field-scoped operations so the hashing and invalidation-timestamp rules
// are always applied in the same write.
type UserRepository interface {
	// Create inserts a new user. Email uniqueness is enforced by the store;
	// a duplicate yields an error matching errors.ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves an active user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves an active user by their normalized email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateProfile updates the allow-listed profile fields (name, email)
	// and returns the updated record.
	UpdateProfile(ctx context.Context, id, name, email string) (*domain.User, error)

	// SetResetToken stores the digest of an outstanding reset secret and its
	// absolute expiry on the user record, replacing any previous one.
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error

	// ClearResetToken removes the reset-token fields, but only while the
	// stored digest still equals tokenHash. A concurrent consumption wins;
	// the clear is then a no-op.
	ClearResetToken(ctx context.Context, id, tokenHash string) error

	// GetByResetToken retrieves the active user whose stored reset-token
	// digest matches and whose expiry is later than now.
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)

	// ConsumeResetToken atomically sets the new password hash and change
	// timestamp while clearing both reset-token fields, conditional on the
	// stored digest still matching tokenHash and being unexpired at now.
	// Returns an error matching errors.ErrNotFound when the condition fails.
	ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, changedAt, now time.Time) error

	// UpdatePassword sets a new password hash and change timestamp in a
	// single write.
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error

	// Deactivate soft-deletes the account; the record is retained but no
	// longer returned by lookups.
	Deactivate(ctx context.Context, id string) error

	// List returns all active users.
	List(ctx context.Context) ([]domain.User, error)
}
