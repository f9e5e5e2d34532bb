// Package events publishes booking and block lifecycle notifications to
// Kafka. Publishing is best-effort: a broker failure is logged by the caller
// and never fails the originating request.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"staybook/pkg/logger"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingRebooked  = "booking.rebooked"
	TypeBookingUpdated   = "booking.updated"
	TypeBookingDeleted   = "booking.deleted"

	TypeBlockCreated = "block.created"
	TypeBlockUpdated = "block.updated"
	TypeBlockDeleted = "block.deleted"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	PropertyID string    `json:"property_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

func New(eventType, propertyID string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		PropertyID: propertyID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds a publisher over kafka-go. Messages are keyed by
// property ID so the hash balancer keeps per-property ordering.
func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("Kafka writer error", "message", fmt.Sprintf(msg, args...))
		}),
	}

	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.PropertyID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured and in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }
