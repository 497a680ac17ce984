package repo

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/worktrack-service/internal/app/product/queries/list_events"
	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
	"github.com/light-bringer/worktrack-service/internal/pkg/query"
)

// EventsReadModel implements list_events.EventsReadModel for Spanner.
type EventsReadModel struct {
	client *spanner.Client
}

// NewEventsReadModel creates a new EventsReadModel.
func NewEventsReadModel(client *spanner.Client) *EventsReadModel {
	return &EventsReadModel{
		client: client,
	}
}

// ListEvents retrieves outbox events, newest first, with optional filters.
func (r *EventsReadModel) ListEvents(ctx context.Context, req *list_events.Request) ([]*m_outbox.Data, int64, error) {
	base := query.From(m_outbox.TableName)
	if req.EventType != nil {
		base = base.Where(query.Eq(m_outbox.EventType, *req.EventType))
	}
	if req.AggregateID != nil {
		base = base.Where(query.Eq(m_outbox.AggregateID, *req.AggregateID))
	}
	if req.Status != nil {
		base = base.Where(query.Eq(m_outbox.Status, *req.Status))
	}

	events, err := scanEvents(r.client.Single().Query(ctx, base.
		Select(m_outbox.Columns...).
		OrderBy(m_outbox.CreatedAt, query.Desc).
		Limit(int64(req.Limit)).
		Build()))
	if err != nil {
		return nil, 0, err
	}

	total, err := r.count(ctx, base.Count().Build())
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *EventsReadModel) count(ctx context.Context, stmt spanner.Statement) (int64, error) {
	iter := r.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	row, err := iter.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	var total int64
	if err := row.Columns(&total); err != nil {
		return 0, fmt.Errorf("failed to parse count: %w", err)
	}
	return total, nil
}
