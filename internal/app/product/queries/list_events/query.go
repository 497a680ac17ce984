package list_events

import (
	"context"
	"fmt"
	"time"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Known event types, matching domain.DomainEvent.EventType values.
var knownEventTypes = map[string]bool{
	(&domain.ProductCreatedEvent{}).EventType():           true,
	(&domain.UnitStatusChangedEvent{}).EventType():        true,
	(&domain.ProductCompletionCheckedEvent{}).EventType(): true,
}

// Request contains filtering parameters for listing events.
type Request struct {
	EventType   *string // e.g. "unit.status_changed"
	AggregateID *string // internal PO
	Status      *string // "pending", "completed", "failed"
	Limit       int     // default 100, max 1000
}

// EventsReadModel defines the interface for reading events.
type EventsReadModel interface {
	ListEvents(ctx context.Context, req *Request) ([]*m_outbox.Data, int64, error)
}

// Event is the read view of one outbox row.
type Event struct {
	EventID     string
	EventType   string
	AggregateID string
	Payload     string
	Status      string
	CreatedAt   time.Time
	ProcessedAt *time.Time
	RetryCount  int64
}

// Response holds one page of events and the total match count.
type Response struct {
	Events     []Event
	TotalCount int64
}

// Query handles the list events query use case.
type Query struct {
	readModel EventsReadModel
}

// NewQuery creates a new list events query.
func NewQuery(readModel EventsReadModel) *Query {
	return &Query{
		readModel: readModel,
	}
}

// Execute retrieves events with filtering, newest first.
func (q *Query) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.EventType != nil && !knownEventTypes[*req.EventType] {
		return nil, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, *req.EventType)
	}
	if req.AggregateID != nil {
		if err := domain.ValidatePO(*req.AggregateID); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		switch *req.Status {
		case m_outbox.StatusPending, m_outbox.StatusProcessing, m_outbox.StatusCompleted, m_outbox.StatusFailed:
		default:
			return nil, fmt.Errorf("%w: unknown event status %q", domain.ErrInvalidInput, *req.Status)
		}
	}

	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.Limit > maxLimit {
		req.Limit = maxLimit
	}

	rows, total, err := q.readModel.ListEvents(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		e := Event{
			EventID:     row.EventID,
			EventType:   row.EventType,
			AggregateID: row.AggregateID,
			Payload:     row.PayloadString(),
			Status:      row.Status,
			CreatedAt:   row.CreatedAt,
			RetryCount:  row.RetryCount,
		}
		if row.ProcessedAt.Valid {
			processedAt := row.ProcessedAt.Time
			e.ProcessedAt = &processedAt
		}
		events = append(events, e)
	}

	return &Response{Events: events, TotalCount: total}, nil
}
