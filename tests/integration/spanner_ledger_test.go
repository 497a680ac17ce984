//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/repo"
	"github.com/light-bringer/worktrack-service/internal/models/m_product"
	"github.com/light-bringer/worktrack-service/internal/models/m_unit"
	"github.com/light-bringer/worktrack-service/tests/testutil"
)

func newLedger(t *testing.T, policy domain.RegressionPolicy) *repo.SpannerLedger {
	t.Helper()
	return repo.NewSpannerLedger(testutil.SetupSpannerTest(t), policy)
}

func TestSpannerLedger_CreateAndRead(t *testing.T) {
	ctx := context.Background()
	client := testutil.SetupSpannerTest(t)
	ledger := repo.NewSpannerLedger(client, domain.AllowRegression)

	rec := testutil.ProductRecord("PO-100", domain.UnitLaserCutting, domain.UnitMilling, domain.UnitBending)
	require.NoError(t, ledger.CreateProduct(ctx, testutil.WriteOptions(), rec))

	details, err := ledger.GetProductDetails(ctx, "PO-100")
	require.NoError(t, err)
	assert.Equal(t, "EXT-PO-100", details.ExternalPO)
	assert.Equal(t, "Acme", details.CompanyName)
	assert.Equal(t, testutil.Identity, details.CreatedBy)
	assert.False(t, details.IsCompleted)
	assert.True(t, details.CreatedAt.IsSet())

	units, err := ledger.GetProductUnits(ctx, "PO-100")
	require.NoError(t, err)
	assert.Equal(t, rec.Units, units)

	status, err := ledger.GetUnitStatus(ctx, "PO-100", domain.UnitMilling)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusToDo, status)

	ts, err := ledger.GetUnitTimestamp(ctx, "PO-100", domain.UnitMilling)
	require.NoError(t, err)
	assert.Equal(t, domain.TimestampAbsent, ts.State())

	testutil.AssertRowCount(t, client, m_product.TableName, 1)
	testutil.AssertRowCount(t, client, m_unit.TableName, 3)
	assert.Equal(t, []string{"product.created"}, testutil.OutboxEventTypes(t, client, "PO-100"))
}

func TestSpannerLedger_DuplicateCreate(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, domain.AllowRegression)

	require.NoError(t, ledger.CreateProduct(ctx, testutil.WriteOptions(), testutil.ProductRecord("PO-1")))

	dup := testutil.ProductRecord("PO-1", domain.UnitDrilling)
	dup.Name = "Other"
	err := ledger.CreateProduct(ctx, testutil.WriteOptions(), dup)
	assert.Equal(t, domain.KindDuplicateProduct, domain.KindOf(err))

	details, err := ledger.GetProductDetails(ctx, "PO-1")
	require.NoError(t, err)
	assert.Equal(t, "Bracket PO-1", details.Name)
}

func TestSpannerLedger_UpdateStatusUsesCommitTimestamp(t *testing.T) {
	ctx := context.Background()
	client := testutil.SetupSpannerTest(t)
	ledger := repo.NewSpannerLedger(client, domain.AllowRegression)
	require.NoError(t, ledger.CreateProduct(ctx, testutil.WriteOptions(), testutil.ProductRecord("PO-2")))

	receipt, err := ledger.UpdateUnitStatus(ctx, testutil.WriteOptions(), "PO-2", domain.UnitMilling, domain.StatusOnProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnProgress, receipt.Status)
	assert.NotEmpty(t, receipt.TxID)

	ts, err := ledger.GetUnitTimestamp(ctx, "PO-2", domain.UnitMilling)
	require.NoError(t, err)
	sec, ok := ts.Unix()
	require.True(t, ok)
	assert.Equal(t, receipt.Timestamp, sec)

	assert.Equal(t, []string{"product.created", "unit.status_changed"}, testutil.OutboxEventTypes(t, client, "PO-2"))
}

func TestSpannerLedger_ForwardOnlyRejectsRegression(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, domain.ForwardOnly)
	require.NoError(t, ledger.CreateProduct(ctx, testutil.WriteOptions(), testutil.ProductRecord("PO-3")))

	_, err := ledger.UpdateUnitStatus(ctx, testutil.WriteOptions(), "PO-3", domain.UnitMilling, domain.StatusDone)
	require.NoError(t, err)

	_, err = ledger.UpdateUnitStatus(ctx, testutil.WriteOptions(), "PO-3", domain.UnitMilling, domain.StatusToDo)
	assert.Equal(t, domain.KindRejected, domain.KindOf(err))
	assert.Equal(t, "status regression not allowed", domain.LedgerMessage(err))

	status, err := ledger.GetUnitStatus(ctx, "PO-3", domain.UnitMilling)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, status)
}

func TestSpannerLedger_Completion(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, domain.AllowRegression)
	require.NoError(t, ledger.CreateProduct(ctx, testutil.WriteOptions(), testutil.ProductRecord("PO-4")))

	completed, err := ledger.CheckProductCompletion(ctx, testutil.WriteOptions(), "PO-4")
	require.NoError(t, err)
	assert.False(t, completed)

	for _, u := range []domain.UnitName{domain.UnitLaserCutting, domain.UnitMilling} {
		_, err := ledger.UpdateUnitStatus(ctx, testutil.WriteOptions(), "PO-4", u, domain.StatusDone)
		require.NoError(t, err)
	}
	completed, err = ledger.CheckProductCompletion(ctx, testutil.WriteOptions(), "PO-4")
	require.NoError(t, err)
	assert.True(t, completed)

	// A regression clears the stored completion flag.
	_, err = ledger.UpdateUnitStatus(ctx, testutil.WriteOptions(), "PO-4", domain.UnitMilling, domain.StatusOnProgress)
	require.NoError(t, err)
	details, err := ledger.GetProductDetails(ctx, "PO-4")
	require.NoError(t, err)
	assert.False(t, details.IsCompleted)
}

func TestSpannerLedger_Errors(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, domain.AllowRegression)
	require.NoError(t, ledger.CreateProduct(ctx, testutil.WriteOptions(), testutil.ProductRecord("PO-5")))

	_, err := ledger.GetProductDetails(ctx, "PO-404")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = ledger.GetUnitStatus(ctx, "PO-5", domain.UnitDrilling)
	assert.Equal(t, domain.KindUnitNotFound, domain.KindOf(err))

	_, err = ledger.UpdateUnitStatus(ctx, contracts.CallOptions{}, "PO-5", domain.UnitMilling, domain.StatusDone)
	assert.Equal(t, domain.KindRejected, domain.KindOf(err))

	opts := testutil.WriteOptions()
	opts.ResourceBudget = contracts.MutationCost
	_, err = ledger.UpdateUnitStatus(ctx, opts, "PO-5", domain.UnitMilling, domain.StatusOnProgress)
	assert.Equal(t, domain.KindRejected, domain.KindOf(err))
	assert.Equal(t, "resource budget exceeded", domain.LedgerMessage(err))
}

func TestSpannerLedger_ListInternalPOs(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, domain.AllowRegression)

	for _, po := range []string{"PO-A", "PO-B", "PO-C"} {
		require.NoError(t, ledger.CreateProduct(ctx, testutil.WriteOptions(), testutil.ProductRecord(po)))
	}
	pos, err := ledger.ListInternalPOs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"PO-A", "PO-B", "PO-C"}, pos)
}

func TestSpannerDialer_Dial(t *testing.T) {
	testutil.SetupSpannerTest(t)

	session, err := repo.NewSpannerDialer(testutil.TestSpannerDB(), domain.AllowRegression).Dial(context.Background())
	require.NoError(t, err)
	defer session.Close()

	pos, err := session.ListInternalPOs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pos)
}
