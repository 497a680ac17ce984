package contracts

import (
	"context"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
)

// OutboxEvent represents an enriched domain event ready for persistence.
type OutboxEvent struct {
	EventID     string
	EventType   string
	AggregateID string
	Payload     string // JSON
	Status      string
}

// OutboxRepository builds outbox mutations for ledger writes.
type OutboxRepository interface {
	// InsertMut creates a mutation for inserting an outbox event
	InsertMut(event *OutboxEvent) *spanner.Mutation

	// EnrichEvent serializes a domain event into a pending outbox event
	EnrichEvent(event domain.DomainEvent) (*OutboxEvent, error)
}

// OutboxStore is the relay's view of the outbox table.
type OutboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]*m_outbox.Data, error)
	MarkCompleted(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID string, retryCount int64, reason string) error
}
