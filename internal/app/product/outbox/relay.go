// Package outbox relays committed ledger events to downstream consumers.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
)

// Publisher delivers one event downstream.
type Publisher interface {
	Publish(ctx context.Context, event *m_outbox.Data) error
}

// Stats summarizes one relay pass.
type Stats struct {
	Published int
	Failed    int
}

// Relay moves pending outbox events to a Publisher.
type Relay struct {
	store     contracts.OutboxStore
	publisher Publisher
	batchSize int
	logger    *slog.Logger
}

// NewRelay creates a relay that handles at most batchSize events per pass.
func NewRelay(store contracts.OutboxStore, publisher Publisher, batchSize int, logger *slog.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{store: store, publisher: publisher, batchSize: batchSize, logger: logger}
}

// RunOnce publishes one batch. A publish failure is recorded on the event and
// does not stop the batch; a store failure does.
func (r *Relay) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	events, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch pending events: %w", err)
	}

	for _, event := range events {
		if err := r.publisher.Publish(ctx, event); err != nil {
			stats.Failed++
			r.logger.Warn("event publish failed",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.EventType),
				slog.Int64("retry_count", event.RetryCount+1),
				slog.Any("error", err))
			if merr := r.store.MarkFailed(ctx, event.EventID, event.RetryCount+1, err.Error()); merr != nil {
				return stats, fmt.Errorf("failed to mark event %s failed: %w", event.EventID, merr)
			}
			continue
		}
		if err := r.store.MarkCompleted(ctx, event.EventID); err != nil {
			return stats, fmt.Errorf("failed to mark event %s completed: %w", event.EventID, err)
		}
		stats.Published++
	}
	return stats, nil
}

// DefaultInterval is used by Run when no interval is given.
const DefaultInterval = 5 * time.Second

// Run calls RunOnce every interval until ctx is done.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stats, err := r.RunOnce(ctx)
		switch {
		case err != nil:
			r.logger.Error("relay pass failed", slog.Any("error", err))
		case stats.Published > 0 || stats.Failed > 0:
			r.logger.Info("relay pass",
				slog.Int("published", stats.Published),
				slog.Int("failed", stats.Failed))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
