// Package kafka publishes outbox events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
)

// Header names attached to every published message.
const (
	HeaderEventType = "x-event-type"
	HeaderEventID   = "x-event-id"
)

// Publisher writes events synchronously so the caller can mark them published.
type Publisher struct {
	w *kafka.Writer
}

// NewPublisher creates a Publisher for topic. Messages are keyed by product so
// one product's events stay ordered within a partition.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish writes one outbox event.
func (p *Publisher) Publish(ctx context.Context, event *m_outbox.Data) error {
	msg := Message(event)
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// Message converts an outbox row into a Kafka message.
func Message(event *m_outbox.Data) kafka.Message {
	return kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: []byte(event.PayloadString()),
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
			{Key: HeaderEventID, Value: []byte(event.EventID)},
		},
	}
}
