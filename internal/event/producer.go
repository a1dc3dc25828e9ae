package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ayushnagarcodes/natours/internal/domain"
	pkgkafka "github.com/ayushnagarcodes/natours/pkg/kafka"
)

// Kafka topic constants for user domain events.
const (
	TopicUserSignedUp        = "natours.user.signed_up"
	TopicUserPasswordChanged = "natours.user.password_changed"
	TopicUserDeactivated     = "natours.user.deactivated"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceAccounts = "natours-accounts"

// UserSignedUpData is the payload for a user.signed_up event.
type UserSignedUpData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserPasswordChangedData is the payload for a user.password_changed event.
// It names the path that changed the password (change-password or
// reset-password) but never carries secret material.
type UserPasswordChangedData struct {
	UserID string `json:"user_id"`
	Via    string `json:"via"`
}

// UserDeactivatedData is the payload for a user.deactivated event.
type UserDeactivatedData struct {
	UserID string `json:"user_id"`
}

// Producer publishes user domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the accounts service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserSignedUp publishes a user.signed_up event.
func (p *Producer) PublishUserSignedUp(ctx context.Context, user *domain.User) error {
	data := UserSignedUpData{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserSignedUp, user.ID, AggregateTypeUser, SourceAccounts, data)
	if err != nil {
		return fmt.Errorf("create user.signed_up event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserSignedUp, event); err != nil {
		return fmt.Errorf("publish user.signed_up event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.signed_up event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishUserPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishUserPasswordChanged(ctx context.Context, userID, via string) error {
	data := UserPasswordChangedData{
		UserID: userID,
		Via:    via,
	}

	event, err := pkgkafka.NewEvent(TopicUserPasswordChanged, userID, AggregateTypeUser, SourceAccounts, data)
	if err != nil {
		return fmt.Errorf("create user.password_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserPasswordChanged, event); err != nil {
		return fmt.Errorf("publish user.password_changed event: %w", err)
	}

	return nil
}

// PublishUserDeactivated publishes a user.deactivated event.
func (p *Producer) PublishUserDeactivated(ctx context.Context, userID string) error {
	data := UserDeactivatedData{UserID: userID}

	event, err := pkgkafka.NewEvent(TopicUserDeactivated, userID, AggregateTypeUser, SourceAccounts, data)
	if err != nil {
		return fmt.Errorf("create user.deactivated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserDeactivated, event); err != nil {
		return fmt.Errorf("publish user.deactivated event: %w", err)
	}

	return nil
}
