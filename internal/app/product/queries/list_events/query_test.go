package list_events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/list_events"
	"github.com/light-bringer/worktrack-service/internal/app/product/repo"
	"github.com/light-bringer/worktrack-service/internal/pkg/clock"
)

func strPtr(s string) *string { return &s }

func seeded(t *testing.T) *repo.MemoryLedger {
	t.Helper()
	store := repo.NewMemoryLedger(clock.NewMockClock(time.Unix(1700000000, 0)), domain.AllowRegression)
	s, err := store.Dial(context.Background())
	require.NoError(t, err)

	opts := contracts.CallOptions{ActingIdentity: "0xoperator"}
	for _, po := range []string{"PO-1", "PO-2"} {
		require.NoError(t, s.CreateProduct(context.Background(), opts, contracts.NewProductRecord{
			InternalPO: po, ExternalPO: "E", Name: "N", CompanyName: "C",
			Units: []domain.UnitName{domain.UnitMilling},
		}))
	}
	_, err = s.UpdateUnitStatus(context.Background(), opts, "PO-1", domain.UnitMilling, domain.StatusDone)
	require.NoError(t, err)
	return store
}

func TestListEvents_Filters(t *testing.T) {
	q := list_events.NewQuery(seeded(t))

	resp, err := q.Execute(context.Background(), &list_events.Request{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.TotalCount)
	assert.Equal(t, "unit.status_changed", resp.Events[0].EventType, "newest first")

	resp, err = q.Execute(context.Background(), &list_events.Request{AggregateID: strPtr("PO-1")})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.TotalCount)
	for _, e := range resp.Events {
		assert.Equal(t, "PO-1", e.AggregateID)
		assert.Equal(t, "pending", e.Status)
		assert.Nil(t, e.ProcessedAt)
	}

	resp, err = q.Execute(context.Background(), &list_events.Request{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Events, 1)
	assert.EqualValues(t, 3, resp.TotalCount)
}

func TestListEvents_RejectsBadFilters(t *testing.T) {
	q := list_events.NewQuery(seeded(t))

	_, err := q.Execute(context.Background(), &list_events.Request{EventType: strPtr("product.deleted")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = q.Execute(context.Background(), &list_events.Request{Status: strPtr("lost")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = q.Execute(context.Background(), &list_events.Request{AggregateID: strPtr("PO 1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
