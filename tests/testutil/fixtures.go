package testutil

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
)

// Identity is the acting identity used by fixtures.
const Identity = "0xoperator"

// WriteOptions returns call options carrying the fixture identity.
func WriteOptions() contracts.CallOptions {
	return contracts.CallOptions{ActingIdentity: Identity, Timeout: 10 * time.Second}
}

// ProductRecord returns a creation payload for internalPO with the given units.
func ProductRecord(internalPO string, units ...domain.UnitName) contracts.NewProductRecord {
	if len(units) == 0 {
		units = []domain.UnitName{domain.UnitLaserCutting, domain.UnitMilling}
	}
	return contracts.NewProductRecord{
		InternalPO:  internalPO,
		ExternalPO:  "EXT-" + internalPO,
		Name:        "Bracket " + internalPO,
		CompanyName: "Acme",
		FileHash:    "QmHash" + internalPO,
		Units:       units,
	}
}

// CreateTestOutboxEvent inserts an outbox event directly and returns its id.
func CreateTestOutboxEvent(t *testing.T, client *spanner.Client, eventType, aggregateID, status string) string {
	t.Helper()

	eventID := uuid.New().String()
	data := &m_outbox.Data{
		EventID:     eventID,
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     spanner.NullJSON{Value: map[string]string{"InternalPO": aggregateID}, Valid: true},
		Status:      status,
	}
	if status != m_outbox.StatusPending {
		data.ProcessedAt = spanner.NullTime{Time: time.Now().Add(-48 * time.Hour), Valid: true}
	}

	_, err := client.Apply(context.Background(), []*spanner.Mutation{m_outbox.NewModel().InsertMut(data)})
	require.NoError(t, err, "failed to create test outbox event")
	return eventID
}

// OutboxEventTypes returns the event types stored for aggregateID, oldest first.
func OutboxEventTypes(t *testing.T, client *spanner.Client, aggregateID string) []string {
	t.Helper()

	iter := client.Single().Query(context.Background(), spanner.Statement{
		SQL:    "SELECT event_type FROM outbox_events WHERE aggregate_id = @id ORDER BY created_at",
		Params: map[string]interface{}{"id": aggregateID},
	})
	defer iter.Stop()

	var out []string
	err := iter.Do(func(row *spanner.Row) error {
		var eventType string
		if err := row.Columns(&eventType); err != nil {
			return err
		}
		out = append(out, eventType)
		return nil
	})
	require.NoError(t, err, "failed to read outbox events")
	return out
}
