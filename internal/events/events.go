package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	EventModulePublished     = "module.published"
	EventModuleRetired       = "module.retired"
	EventAssignmentCompleted = "assignment.completed"
	EventUserCreated         = "user.created"
)

// Envelope is the wire shape of every event on the onboarding topic.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type ModulePublished struct {
	ModuleID    uint   `json:"module_id"`
	Title       string `json:"title"`
	PublishedBy uint   `json:"published_by"`
	Assigned    int    `json:"assigned"`
}

type ModuleRetired struct {
	ModuleID  uint `json:"module_id"`
	RetiredBy uint `json:"retired_by"`
}

type AssignmentCompleted struct {
	AssignmentID uint    `json:"assignment_id"`
	UserID       uint    `json:"user_id"`
	ModuleID     uint    `json:"module_id"`
	Score        float64 `json:"score"`
	Passed       bool    `json:"passed"`
	Attempts     int     `json:"attempts"`
}

type UserCreated struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Publisher emits domain events. Implementations must be safe for
// concurrent use; a failed publish is logged by callers, never fatal.
type Publisher interface {
	Publish(eventType string, payload interface{}) error
	Close() error
}

type watermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

// NewKafkaPublisher connects the service to the shared onboarding topic.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (Publisher, error) {
	pub, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return &watermillPublisher{publisher: pub, topic: topic, logger: logger}, nil
}

// NewInProcessPublisher backs the same interface with an in-memory pubsub,
// used in development when no brokers are configured and in tests.
func NewInProcessPublisher(topic string, logger *slog.Logger) Publisher {
	pub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	return &watermillPublisher{publisher: pub, topic: topic, logger: logger}
}

func (p *watermillPublisher) Publish(eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	envelope := Envelope{
		ID:         watermill.NewUUID(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", eventType, err)
	}

	msg := message.NewMessage(envelope.ID, raw)
	msg.Metadata.Set("event_type", eventType)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

func (p *watermillPublisher) Close() error {
	return p.publisher.Close()
}
