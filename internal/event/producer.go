// Package event publishes user domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	pkgkafka "github.com/Uchennem/sleepoutsideServer/pkg/kafka"
	"github.com/Uchennem/sleepoutsideServer/pkg/logger"
)

// Aggregate type and source recorded on every user event.
const (
	AggregateTypeUser = "user"
	SourceService     = "sleepoutside-api"
)

// TopicUserRegistered receives one event per successful registration.
var TopicUserRegistered = pkgkafka.Topic(AggregateTypeUser, "registered")

// Sender is the publishing surface of *pkgkafka.Producer.
type Sender interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Producer publishes user domain events.
type Producer struct {
	sender Sender
	logger *slog.Logger
}

// NewProducer creates a producer. A nil sender makes every publish a no-op,
// which is how the service runs with Kafka disabled.
func NewProducer(sender Sender, logger *slog.Logger) *Producer {
	return &Producer{sender: sender, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	if p == nil || p.sender == nil {
		return nil
	}

	data := UserRegisteredData{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.sender.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return nil
}
