package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/list_events"
	"github.com/light-bringer/worktrack-service/internal/pkg/clock"
)

var operator = contracts.CallOptions{ActingIdentity: "0xoperator"}

func openSession(t *testing.T, policy domain.RegressionPolicy) (*MemoryLedger, *clock.MockClock, contracts.LedgerSession) {
	t.Helper()
	clk := clock.NewMockClock(time.Unix(1700000000, 0))
	store := NewMemoryLedger(clk, policy)
	session, err := store.Dial(context.Background())
	require.NoError(t, err)

	require.NoError(t, session.CreateProduct(context.Background(), operator, contracts.NewProductRecord{
		InternalPO:  "PO-100",
		ExternalPO:  "EXT-9",
		Name:        "Bracket",
		CompanyName: "Acme",
		Units:       []domain.UnitName{domain.UnitLaserCutting, domain.UnitMilling},
	}))
	return store, clk, session
}

func TestMemoryLedger_CreateProductInitialState(t *testing.T) {
	_, _, s := openSession(t, domain.AllowRegression)
	ctx := context.Background()

	details, err := s.GetProductDetails(ctx, "PO-100")
	require.NoError(t, err)
	assert.Equal(t, "0xoperator", details.CreatedBy)
	assert.False(t, details.IsCompleted)
	ts, ok := details.CreatedAt.Unix()
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000), ts)

	status, err := s.GetUnitStatus(ctx, "PO-100", domain.UnitMilling)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusToDo, status)

	stamp, err := s.GetUnitTimestamp(ctx, "PO-100", domain.UnitMilling)
	require.NoError(t, err)
	assert.Equal(t, domain.TimestampAbsent, stamp.State())
}

func TestMemoryLedger_DuplicateCreate(t *testing.T) {
	store, _, s := openSession(t, domain.AllowRegression)

	err := s.CreateProduct(context.Background(), operator, contracts.NewProductRecord{
		InternalPO: "PO-100", ExternalPO: "X", Name: "Y", CompanyName: "Z",
		Units: []domain.UnitName{domain.UnitBending},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateProduct)
	assert.Equal(t, []string{"product.created"}, store.EventTypes())
}

func TestMemoryLedger_ReceiptTimestampIsMonotonic(t *testing.T) {
	_, clk, s := openSession(t, domain.AllowRegression)
	ctx := context.Background()

	clk.Advance(time.Minute)
	first, err := s.UpdateUnitStatus(ctx, operator, "PO-100", domain.UnitMilling, domain.StatusOnProgress)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000060), first.Timestamp)
	assert.NotEmpty(t, first.TxID)

	clk.Set(time.Unix(1600000000, 0))
	second, err := s.UpdateUnitStatus(ctx, operator, "PO-100", domain.UnitMilling, domain.StatusDone)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.Timestamp, first.Timestamp)

	stamp, err := s.GetUnitTimestamp(ctx, "PO-100", domain.UnitMilling)
	require.NoError(t, err)
	ts, _ := stamp.Unix()
	assert.Equal(t, second.Timestamp, ts)
}

func TestMemoryLedger_ForwardOnlyRejectsRegression(t *testing.T) {
	_, _, s := openSession(t, domain.ForwardOnly)
	ctx := context.Background()

	_, err := s.UpdateUnitStatus(ctx, operator, "PO-100", domain.UnitMilling, domain.StatusDone)
	require.NoError(t, err)

	_, err = s.UpdateUnitStatus(ctx, operator, "PO-100", domain.UnitMilling, domain.StatusToDo)
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, msgRegression, domain.LedgerMessage(err))

	status, err := s.GetUnitStatus(ctx, "PO-100", domain.UnitMilling)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, status)
}

func TestMemoryLedger_RegressionClearsCompletion(t *testing.T) {
	_, _, s := openSession(t, domain.AllowRegression)
	ctx := context.Background()

	for _, u := range []domain.UnitName{domain.UnitLaserCutting, domain.UnitMilling} {
		_, err := s.UpdateUnitStatus(ctx, operator, "PO-100", u, domain.StatusDone)
		require.NoError(t, err)
	}
	completed, err := s.CheckProductCompletion(ctx, operator, "PO-100")
	require.NoError(t, err)
	assert.True(t, completed)

	_, err = s.UpdateUnitStatus(ctx, operator, "PO-100", domain.UnitMilling, domain.StatusOnProgress)
	require.NoError(t, err)

	details, err := s.GetProductDetails(ctx, "PO-100")
	require.NoError(t, err)
	assert.False(t, details.IsCompleted)
}

func TestMemoryLedger_MissingIdentityRejected(t *testing.T) {
	_, _, s := openSession(t, domain.AllowRegression)

	_, err := s.CheckProductCompletion(context.Background(), contracts.CallOptions{}, "PO-100")
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, msgMissingIdentity, domain.LedgerMessage(err))
}

func TestMemoryLedger_CreateBudget(t *testing.T) {
	store := NewMemoryLedger(clock.NewMockClock(time.Unix(1700000000, 0)), domain.AllowRegression)
	s, err := store.Dial(context.Background())
	require.NoError(t, err)

	opts := operator
	opts.ResourceBudget = 3 * contracts.MutationCost
	err = s.CreateProduct(context.Background(), opts, contracts.NewProductRecord{
		InternalPO: "PO-7", ExternalPO: "E", Name: "N", CompanyName: "C",
		Units: []domain.UnitName{domain.UnitLaserCutting, domain.UnitMilling},
	})
	assert.ErrorIs(t, err, domain.ErrRejected)

	_, err = s.GetProductDetails(context.Background(), "PO-7")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryLedger_OfflineBreaksSessions(t *testing.T) {
	store, _, s := openSession(t, domain.AllowRegression)

	store.SetOnline(false)
	_, err := s.ListInternalPOs(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)

	_, err = store.Dial(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)

	store.SetOnline(true)
	_, err = s.ListInternalPOs(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection, "old session stays broken")

	fresh, err := store.Dial(context.Background())
	require.NoError(t, err)
	pos, err := fresh.ListInternalPOs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"PO-100"}, pos)
}

func TestMemoryLedger_ListEvents(t *testing.T) {
	store, _, s := openSession(t, domain.AllowRegression)
	ctx := context.Background()

	_, err := s.UpdateUnitStatus(ctx, operator, "PO-100", domain.UnitMilling, domain.StatusDone)
	require.NoError(t, err)

	assert.Equal(t, []string{"product.created", "unit.status_changed"}, store.EventTypes())

	eventType := "unit.status_changed"
	rows, total, err := store.ListEvents(ctx, &list_events.Request{EventType: &eventType, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "PO-100", rows[0].AggregateID)
	assert.JSONEq(t,
		`{"InternalPO":"PO-100","Unit":"milling","From":"to-do","To":"done","ChangedBy":"0xoperator"}`,
		rows[0].PayloadString())
}
