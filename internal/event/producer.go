package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olivethotokunefor/Mentora/internal/domain"
	pkgkafka "github.com/olivethotokunefor/Mentora/pkg/kafka"
)

// Kafka topic constants for user domain events.
const (
	TopicUserRegistered = "mentora.user.registered"
	TopicProfileUpdated = "mentora.profile.updated"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceMentoraAPI = "mentora-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ProfileUpdatedData is the payload for a profile.updated event.
type ProfileUpdatedData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Producer publishes user domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User, username string) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Email:    user.Email,
		Username: username,
		Role:     user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceMentoraAPI, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishProfileUpdated publishes a profile.updated event.
func (p *Producer) PublishProfileUpdated(ctx context.Context, profile *domain.Profile) error {
	data := ProfileUpdatedData{
		UserID:   profile.UserID,
		Username: profile.Username,
	}

	event, err := pkgkafka.NewEvent(TopicProfileUpdated, profile.UserID, AggregateTypeUser, SourceMentoraAPI, data)
	if err != nil {
		return fmt.Errorf("create profile.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProfileUpdated, event); err != nil {
		return fmt.Errorf("publish profile.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published profile.updated event",
		slog.String("user_id", profile.UserID),
	)

	return nil
}
