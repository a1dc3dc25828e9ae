package service

import (
	"context"
	"log/slog"

	"github.com/ayushnagarcodes/natours/internal/domain"
	"github.com/ayushnagarcodes/natours/internal/event"
	"github.com/ayushnagarcodes/natours/internal/repository"
	apperrors "github.com/ayushnagarcodes/natours/pkg/errors"
	"github.com/ayushnagarcodes/natours/pkg/logger"
	"github.com/ayushnagarcodes/natours/pkg/validator"
)

// UserService handles the self-service profile operations and the admin
// listing. Password changes live in AuthService and are rejected here.
type UserService struct {
	users  repository.UserRepository
	events *event.Producer
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, events *event.Producer, log *slog.Logger) *UserService {
	return &UserService{users: users, events: events, logger: log}
}

// UpdateProfileInput holds the only fields a user may change about
// themselves. Anything else in the request body is ignored by decoding and
// password fields are rejected by the handler before reaching here.
type UpdateProfileInput struct {
	Name  string `json:"name" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

// UpdateProfile applies the allow-listed fields to the user's own record.
// Empty fields keep their current value.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error) {
	if in.Name == "" && in.Email == "" {
		return nil, apperrors.Validation("please provide a name or email to update")
	}
	if err := validator.Validate(in); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := current.Name
	if in.Name != "" {
		name = in.Name
	}
	email := current.Email
	if in.Email != "" {
		email = normalizeEmail(in.Email)
	}

	updated, err := s.users.UpdateProfile(ctx, userID, name, email)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.logger).Info("profile updated", slog.String("user_id", userID))
	return updated, nil
}

// Deactivate soft-deletes the user's own account. The row is kept but the
// account disappears from every lookup and all existing tokens stop
// resolving.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return err
	}

	if err := s.events.PublishUserDeactivated(ctx, userID); err != nil {
		logger.WithContext(ctx, s.logger).Warn("failed to publish deactivation event",
			slog.String("user_id", userID), slog.String("error", err.Error()))
	}

	logger.WithContext(ctx, s.logger).Info("account deactivated", slog.String("user_id", userID))
	return nil
}

// List returns every active account. Exposed to admins only.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}
