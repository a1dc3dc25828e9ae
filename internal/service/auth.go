package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayushnagarcodes/natours/internal/auth"
	"github.com/ayushnagarcodes/natours/internal/domain"
	"github.com/ayushnagarcodes/natours/internal/event"
	"github.com/ayushnagarcodes/natours/internal/mailer"
	"github.com/ayushnagarcodes/natours/internal/repository"
	apperrors "github.com/ayushnagarcodes/natours/pkg/errors"
	"github.com/ayushnagarcodes/natours/pkg/logger"
	"github.com/ayushnagarcodes/natours/pkg/validator"
)

// msgBadCredentials is returned for both unknown emails and wrong passwords
// so a caller cannot tell which one failed.
const msgBadCredentials = "incorrect email or password"

// msgBadResetToken covers unknown, expired, and already-consumed reset
// secrets uniformly.
const msgBadResetToken = "reset token is invalid or has expired"

// dummyDigest is a well-formed bcrypt digest used to burn a comparison when
// the email is unknown, so login takes the same time either way. The
// plaintext behind it is irrelevant; the result is discarded.
const dummyDigest = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AuthService implements the credential and session lifecycle: signup,
// login, token verification, password change, and the reset flow.
type AuthService struct {
	users    repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenCodec
	resets   *ResetTokenManager
	mail     mailer.Mailer
	events   *event.Producer
	resetURL string
	logger   *slog.Logger
}

// NewAuthService wires the credential store, hasher, token codec, reset
// manager, mail transport, and event producer together. resetURL is the
// base URL the emailed reset link is built from, without a trailing slash.
func NewAuthService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenCodec,
	resets *ResetTokenManager,
	mail mailer.Mailer,
	events *event.Producer,
	resetURL string,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		resets:   resets,
		mail:     mail,
		events:   events,
		resetURL: strings.TrimSuffix(resetURL, "/"),
		logger:   log,
	}
}

// SignupInput carries the fields accepted at registration. Role is
// deliberately absent: every new account starts as a regular user.
type SignupInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// Signup registers a new account and returns it with a fresh session token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.User, string, error) {
	if err := validator.Validate(in); err != nil {
		return nil, "", apperrors.Validation(err.Error())
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", apperrors.Internal("failed to process password", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		Role:         domain.DefaultRole,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, now)
	if err != nil {
		return nil, "", apperrors.Internal("failed to issue session token", err)
	}

	if err := s.events.PublishUserSignedUp(ctx, user); err != nil {
		logger.WithContext(ctx, s.logger).Warn("failed to publish signup event",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}

	logger.WithContext(ctx, s.logger).Info("user signed up", slog.String("user_id", user.ID))
	return user, token, nil
}

// Login verifies an email and password pair and issues a session token.
// Unknown emails and wrong passwords produce the exact same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperrors.Validation("please provide email and password")
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		// Burn a comparison anyway so the timing matches the found case.
		s.hasher.Verify(password, dummyDigest)
		return nil, "", apperrors.Authentication(msgBadCredentials)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", apperrors.Authentication(msgBadCredentials)
	}

	token, err := s.tokens.Issue(user.ID, time.Now().UTC())
	if err != nil {
		return nil, "", apperrors.Internal("failed to issue session token", err)
	}

	logger.WithContext(ctx, s.logger).Info("user logged in", slog.String("user_id", user.ID))
	return user, token, nil
}

// Authenticate resolves a bearer token to its live account. It fails when
// the token is malformed or expired, when the account no longer exists or
// was deactivated, and when the password changed after the token was issued.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.User, error) {
	if tokenString == "" {
		return nil, apperrors.Authentication("you are not logged in, please log in to get access")
	}

	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, apperrors.Authentication("invalid or expired token, please log in again")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Authentication("the user belonging to this token no longer exists")
	}

	if user.PasswordChangedAfter(claims.IssuedAt.Time) {
		return nil, apperrors.Authentication("password was changed recently, please log in again")
	}

	return user, nil
}

// RequestPasswordReset mints a reset secret for the account behind email
// and delivers the reset link. If delivery fails the stored secret is
// rolled back so the account is left untouched.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.Validation("please provide an email address")
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return apperrors.NotFound("there is no user with that email address")
	}

	secret, digest, err := s.resets.Generate(ctx, user)
	if err != nil {
		return apperrors.Internal("failed to generate reset token", err)
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d minutes)", int(s.resets.Window().Minutes())),
		Body: fmt.Sprintf(
			"Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s/%s\nIf you didn't forget your password, please ignore this email.",
			s.resetURL, secret,
		),
	}

	if err := s.mail.Send(ctx, msg); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID, digest); clearErr != nil {
			logger.WithContext(ctx, s.logger).Error("failed to roll back reset token",
				slog.String("user_id", user.ID), slog.String("error", clearErr.Error()))
		}
		return apperrors.Internal("there was an error sending the email, try again later", err)
	}

	logger.WithContext(ctx, s.logger).Info("password reset requested",
		slog.String("user_id", user.ID), slog.String("mailer", s.mail.Name()))
	return nil
}

// CompletePasswordReset consumes a reset secret and installs the new
// password, returning the account with a fresh session token. The secret is
// single-use: concurrent attempts with the same secret succeed at most once.
func (s *AuthService) CompletePasswordReset(ctx context.Context, secret, password, passwordConfirm string) (*domain.User, string, error) {
	if err := validatePasswordPair(password, passwordConfirm); err != nil {
		return nil, "", err
	}

	user, err := s.resets.Resolve(ctx, secret)
	if err != nil {
		return nil, "", apperrors.Authentication(msgBadResetToken)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", apperrors.Internal("failed to process password", err)
	}

	now := time.Now().UTC()
	// Backdate by a second so tokens issued in the same second as the
	// change are still considered stale (JWT iat has second precision).
	changedAt := now.Add(-time.Second)

	if err := s.users.ConsumeResetToken(ctx, user.ID, auth.HashResetSecret(secret), hash, changedAt, now); err != nil {
		return nil, "", apperrors.Authentication(msgBadResetToken)
	}

	token, err := s.tokens.Issue(user.ID, now)
	if err != nil {
		return nil, "", apperrors.Internal("failed to issue session token", err)
	}

	if err := s.events.PublishUserPasswordChanged(ctx, user.ID, "reset"); err != nil {
		logger.WithContext(ctx, s.logger).Warn("failed to publish password change event",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}

	logger.WithContext(ctx, s.logger).Info("password reset completed", slog.String("user_id", user.ID))
	return user, token, nil
}

// ChangePassword updates the password of an authenticated user after
// re-verifying the current one, and issues a fresh session token since all
// prior tokens become stale.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, password, passwordConfirm string) (*domain.User, string, error) {
	if current == "" {
		return nil, "", apperrors.Validation("please provide your current password")
	}
	if err := validatePasswordPair(password, passwordConfirm); err != nil {
		return nil, "", err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", apperrors.Authentication("the user belonging to this token no longer exists")
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		return nil, "", apperrors.Authentication("your current password is wrong")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", apperrors.Internal("failed to process password", err)
	}

	now := time.Now().UTC()
	changedAt := now.Add(-time.Second)
	if err := s.users.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		return nil, "", err
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt

	token, err := s.tokens.Issue(user.ID, now)
	if err != nil {
		return nil, "", apperrors.Internal("failed to issue session token", err)
	}

	if err := s.events.PublishUserPasswordChanged(ctx, user.ID, "update"); err != nil {
		logger.WithContext(ctx, s.logger).Warn("failed to publish password change event",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}

	logger.WithContext(ctx, s.logger).Info("password updated", slog.String("user_id", user.ID))
	return user, token, nil
}

// passwordPair is validated whenever a new password is installed outside
// signup.
type passwordPair struct {
	Password        string `validate:"required,min=8,max=72"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

func validatePasswordPair(password, confirm string) error {
	if err := validator.Validate(passwordPair{Password: password, PasswordConfirm: confirm}); err != nil {
		return apperrors.Validation(err.Error())
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
