//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/repo"
	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
	"github.com/light-bringer/worktrack-service/tests/testutil"
)

func TestOutboxRepo_InsertAndFetchPending(t *testing.T) {
	ctx := context.Background()
	client := testutil.SetupSpannerTest(t)
	outbox := repo.NewOutboxRepo(client)

	event, err := outbox.EnrichEvent(&domain.UnitStatusChangedEvent{
		InternalPO: "PO-1", Unit: "milling", From: "to-do", To: "done", ChangedBy: testutil.Identity,
	})
	require.NoError(t, err)
	_, err = client.Apply(ctx, []*spanner.Mutation{outbox.InsertMut(event)})
	require.NoError(t, err)

	pending, err := outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, event.EventID, pending[0].EventID)
	assert.Equal(t, "unit.status_changed", pending[0].EventType)
	assert.JSONEq(t, event.Payload, pending[0].PayloadString())
}

func TestOutboxRepo_MarkCompletedAndFailed(t *testing.T) {
	ctx := context.Background()
	client := testutil.SetupSpannerTest(t)
	outbox := repo.NewOutboxRepo(client)

	done := testutil.CreateTestOutboxEvent(t, client, "product.created", "PO-1", m_outbox.StatusPending)
	failed := testutil.CreateTestOutboxEvent(t, client, "product.created", "PO-2", m_outbox.StatusPending)

	require.NoError(t, outbox.MarkCompleted(ctx, done))
	require.NoError(t, outbox.MarkFailed(ctx, failed, 1, "broker unavailable"))

	pending, err := outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	for _, e := range pending {
		assert.NotEqual(t, done, e.EventID)
	}
}

func TestOutboxRepo_PurgeProcessed(t *testing.T) {
	ctx := context.Background()
	client := testutil.SetupSpannerTest(t)
	outbox := repo.NewOutboxRepo(client)

	testutil.CreateTestOutboxEvent(t, client, "product.created", "PO-1", m_outbox.StatusCompleted)
	testutil.CreateTestOutboxEvent(t, client, "product.created", "PO-2", m_outbox.StatusFailed)
	testutil.CreateTestOutboxEvent(t, client, "product.created", "PO-3", m_outbox.StatusPending)

	cutoff := time.Now().Add(-24 * time.Hour)

	counts, err := outbox.PurgeProcessed(ctx, cutoff, cutoff, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{m_outbox.StatusCompleted: 1, m_outbox.StatusFailed: 1}, counts)
	testutil.AssertRowCount(t, client, m_outbox.TableName, 3)

	counts, err = outbox.PurgeProcessed(ctx, cutoff, cutoff, false)
	require.NoError(t, err)
	assert.Len(t, counts, 2)
	testutil.AssertRowCount(t, client, m_outbox.TableName, 1)
}

func TestEventsReadModel_ListEvents(t *testing.T) {
	ctx := context.Background()
	client := testutil.SetupSpannerTest(t)
	ledger := repo.NewSpannerLedger(client, domain.AllowRegression)

	require.NoError(t, ledger.CreateProduct(ctx, testutil.WriteOptions(), testutil.ProductRecord("PO-7")))
	_, err := ledger.UpdateUnitStatus(ctx, testutil.WriteOptions(), "PO-7", domain.UnitMilling, domain.StatusDone)
	require.NoError(t, err)

	events, total, err := repo.NewEventsReadModel(client).ListEvents(ctx, listRequest("PO-7", 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, events, 2)
	assert.Equal(t, "unit.status_changed", events[0].EventType)
	assert.Equal(t, "product.created", events[1].EventType)
}
