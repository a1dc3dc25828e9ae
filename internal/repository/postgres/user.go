package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ayushnagarcodes/natours/internal/domain"
	apperrors "github.com/ayushnagarcodes/natours/pkg/errors"
)

// DB is the subset of pgxpool.Pool used by the repositories. pgxmock
// satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, role, password_hash, password_changed_at, password_reset_token_hash, password_reset_expires_at, active, created_at, updated_at`

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, role, password_hash, password_changed_at, password_reset_token_hash, password_reset_expires_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.Role,
		u.PasswordHash,
		u.PasswordChangedAt,
		u.PasswordResetTokenHash,
		u.PasswordResetExpiresAt,
		u.Active,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves an active user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND active = TRUE`

	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves an active user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND active = TRUE`

	return r.scanUser(ctx, query, email)
}

// UpdateProfile updates name and email, returning the updated record.
func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, email string) (*domain.User, error) {
	query := `
		UPDATE users
		SET name = $1, email = $2, updated_at = $3
		WHERE id = $4 AND active = TRUE
		RETURNING ` + userColumns

	u, err := r.scanUser(ctx, query, name, email, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.AlreadyExists("user", "email", email)
		}
		return nil, err
	}

	return u, nil
}

// SetResetToken stores the reset-token digest and expiry for the user.
func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET password_reset_token_hash = $1, password_reset_expires_at = $2, updated_at = $3
		WHERE id = $4 AND active = TRUE`

	ct, err := r.db.Exec(ctx, query, tokenHash, expiresAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}

	return nil
}

// ClearResetToken removes the reset-token fields while the stored digest
// still matches tokenHash. Zero affected rows means a concurrent consumption
// already cleared them, which is not an error.
func (r *UserRepository) ClearResetToken(ctx context.Context, id, tokenHash string) error {
	query := `
		UPDATE users
		SET password_reset_token_hash = NULL, password_reset_expires_at = NULL, updated_at = $1
		WHERE id = $2 AND password_reset_token_hash = $3`

	if _, err := r.db.Exec(ctx, query, time.Now().UTC(), id, tokenHash); err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}

	return nil
}

// GetByResetToken retrieves the active user with a matching, unexpired
// reset-token digest.
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE password_reset_token_hash = $1 AND password_reset_expires_at > $2 AND active = TRUE`

	return r.scanUser(ctx, query, tokenHash, now)
}

// ConsumeResetToken applies the new password and clears the reset-token
// fields in one conditional update keyed by the current digest.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, changedAt, now time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_changed_at = $2, password_reset_token_hash = NULL, password_reset_expires_at = NULL, updated_at = $3
		WHERE id = $4 AND password_reset_token_hash = $5 AND password_reset_expires_at > $6 AND active = TRUE`

	ct, err := r.db.Exec(ctx, query, passwordHash, changedAt, time.Now().UTC(), id, tokenHash, now)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// UpdatePassword sets a new password hash and change timestamp.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_changed_at = $2, updated_at = $3
		WHERE id = $4 AND active = TRUE`

	ct, err := r.db.Exec(ctx, query, passwordHash, changedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}

	return nil
}

// Deactivate soft-deletes the account.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE users SET active = FALSE, updated_at = $1 WHERE id = $2 AND active = TRUE`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}

	return nil
}

// List returns all active users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE active = TRUE
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := scanInto(rows, &u); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}

	if users == nil {
		users = []domain.User{}
	}

	return users, nil
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User
	if err := scanInto(r.db.QueryRow(ctx, query, args...), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// scanInto scans one row in userColumns order.
func scanInto(row pgx.Row, u *domain.User) error {
	return row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.PasswordHash,
		&u.PasswordChangedAt,
		&u.PasswordResetTokenHash,
		&u.PasswordResetExpiresAt,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
