package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
	"github.com/light-bringer/worktrack-service/internal/pkg/committer"
	"github.com/light-bringer/worktrack-service/internal/pkg/query"
)

// OutboxRepo implements OutboxRepository and OutboxStore for Spanner.
type OutboxRepo struct {
	client    *spanner.Client
	committer *committer.Committer
	model     *m_outbox.Model
}

var (
	_ contracts.OutboxRepository = (*OutboxRepo)(nil)
	_ contracts.OutboxStore      = (*OutboxRepo)(nil)
)

// NewOutboxRepo creates a new OutboxRepo. client may be nil when only
// mutations are needed.
func NewOutboxRepo(client *spanner.Client) *OutboxRepo {
	return &OutboxRepo{
		client:    client,
		committer: committer.NewCommitter(client),
		model:     m_outbox.NewModel(),
	}
}

// InsertMut creates a mutation for inserting an outbox event.
func (r *OutboxRepo) InsertMut(event *contracts.OutboxEvent) *spanner.Mutation {
	return r.model.InsertMut(toOutboxData(event))
}

// EnrichEvent serializes a domain event into a pending outbox event.
func (r *OutboxRepo) EnrichEvent(event domain.DomainEvent) (*contracts.OutboxEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s event: %w", event.EventType(), err)
	}
	return &contracts.OutboxEvent{
		EventID:     uuid.New().String(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		Payload:     string(payload),
		Status:      m_outbox.StatusPending,
	}, nil
}

// FetchPending returns the oldest pending events.
func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]*m_outbox.Data, error) {
	stmt := query.From(m_outbox.TableName).
		Select(m_outbox.Columns...).
		Where(query.Eq(m_outbox.Status, m_outbox.StatusPending)).
		OrderBy(m_outbox.CreatedAt, query.Asc).
		Limit(int64(limit)).
		Build()
	return scanEvents(r.client.Single().Query(ctx, stmt))
}

// MarkCompleted records a successful publish.
func (r *OutboxRepo) MarkCompleted(ctx context.Context, eventID string) error {
	plan := committer.NewPlan()
	plan.Add(r.model.MarkCompletedMut(eventID))
	if _, err := r.committer.Apply(ctx, plan); err != nil {
		return fmt.Errorf("failed to mark event %s completed: %w", eventID, err)
	}
	return nil
}

// MarkFailed records a failed publish attempt.
func (r *OutboxRepo) MarkFailed(ctx context.Context, eventID string, retryCount int64, reason string) error {
	plan := committer.NewPlan()
	plan.Add(r.model.MarkFailedMut(eventID, retryCount, reason))
	if _, err := r.committer.Apply(ctx, plan); err != nil {
		return fmt.Errorf("failed to mark event %s failed: %w", eventID, err)
	}
	return nil
}

// expired matches completed and failed events processed before their cutoffs.
func expired(completedCutoff, failedCutoff time.Time) query.Condition {
	return query.Or(
		query.And(query.Eq(m_outbox.Status, m_outbox.StatusCompleted), query.Lt(m_outbox.ProcessedAt, completedCutoff)),
		query.And(query.Eq(m_outbox.Status, m_outbox.StatusFailed), query.Lt(m_outbox.ProcessedAt, failedCutoff)),
	)
}

// PurgeProcessed deletes completed events processed before completedCutoff and
// failed events processed before failedCutoff. It returns the matching row
// count per status; with dryRun nothing is deleted.
func (r *OutboxRepo) PurgeProcessed(ctx context.Context, completedCutoff, failedCutoff time.Time, dryRun bool) (map[string]int64, error) {
	base := query.From(m_outbox.TableName).Where(expired(completedCutoff, failedCutoff))
	countStmt := base.Select(m_outbox.Status, "COUNT(*)").Build()
	countStmt.SQL += " GROUP BY " + m_outbox.Status

	counts := make(map[string]int64)
	readCounts := func(iter *spanner.RowIterator) error {
		return iter.Do(func(row *spanner.Row) error {
			var status string
			var n int64
			if err := row.Columns(&status, &n); err != nil {
				return fmt.Errorf("failed to parse count: %w", err)
			}
			counts[status] = n
			return nil
		})
	}

	if dryRun {
		if err := readCounts(r.client.Single().Query(ctx, countStmt)); err != nil {
			return nil, fmt.Errorf("failed to count expired events: %w", err)
		}
		return counts, nil
	}

	_, err := r.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		clear(counts)
		if err := readCounts(txn.Query(ctx, countStmt)); err != nil {
			return fmt.Errorf("failed to count expired events: %w", err)
		}
		if len(counts) == 0 {
			return nil
		}
		if _, err := txn.Update(ctx, base.Delete().Build()); err != nil {
			return fmt.Errorf("failed to delete expired events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func toOutboxData(event *contracts.OutboxEvent) *m_outbox.Data {
	payload := spanner.NullJSON{}
	if event.Payload != "" {
		payload = spanner.NullJSON{Value: json.RawMessage(event.Payload), Valid: true}
	}
	return &m_outbox.Data{
		EventID:     event.EventID,
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Payload:     payload,
		Status:      event.Status,
		RetryCount:  0,
	}
}

func scanEvents(iter *spanner.RowIterator) ([]*m_outbox.Data, error) {
	defer iter.Stop()

	var events []*m_outbox.Data
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate events: %w", err)
		}

		var event m_outbox.Data
		if err := row.ToStruct(&event); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}
	return events, nil
}
