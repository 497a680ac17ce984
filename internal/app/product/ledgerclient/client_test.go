package ledgerclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/repo"
	"github.com/light-bringer/worktrack-service/internal/pkg/clock"
	"github.com/light-bringer/worktrack-service/internal/pkg/logging"
)

var writer = contracts.CallOptions{ActingIdentity: "0xoperator"}

func newTestClient(t *testing.T) (*Client, *repo.MemoryLedger) {
	t.Helper()
	store := repo.NewMemoryLedger(clock.NewMockClock(time.Unix(1700000000, 0)), domain.AllowRegression)
	c := NewClient(store, Config{ReadTimeout: 50 * time.Millisecond, WriteTimeout: 50 * time.Millisecond}, logging.NewNop(), nil)
	return c, store
}

func connected(t *testing.T) (*Client, *repo.MemoryLedger) {
	t.Helper()
	c, store := newTestClient(t)
	require.NoError(t, c.Connect(context.Background()))
	return c, store
}

func createPO100(t *testing.T, c *Client) {
	t.Helper()
	require.NoError(t, c.CreateProduct(context.Background(), writer, contracts.NewProductRecord{
		InternalPO:  "PO-100",
		ExternalPO:  "EXT-9",
		Name:        "Bracket",
		CompanyName: "Acme",
		Units:       []domain.UnitName{domain.UnitMilling, domain.UnitDrilling},
	}))
}

func TestClient_ValidatesBeforeDispatch(t *testing.T) {
	c, store := connected(t)
	var calls int32
	store.SetFault(func(ctx context.Context, op, po string, unit domain.UnitName) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	ctx := context.Background()

	_, err := c.GetUnitStatus(ctx, "PO 100", domain.UnitMilling)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

	_, err = c.GetUnitTimestamp(ctx, "PO-100", domain.UnitName("welding"))
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

	_, err = c.UpdateUnitStatus(ctx, writer, "PO-100", domain.UnitMilling, domain.Status("shipped"))
	assert.Equal(t, domain.KindInvalidStatus, domain.KindOf(err))

	_, err = c.UpdateUnitStatus(ctx, contracts.CallOptions{}, "PO-100", domain.UnitMilling, domain.StatusDone)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

	err = c.CreateProduct(ctx, writer, contracts.NewProductRecord{InternalPO: "PO-1"})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClient_ConnectConverges(t *testing.T) {
	c, store := newTestClient(t)
	assert.Equal(t, contracts.Disconnected, c.State())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Connect(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, contracts.Connected, c.State())
	assert.Equal(t, 1, store.Dials())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, 1, store.Dials())
}

// gatedDialer holds every dial until release closes or the dial ctx ends.
type gatedDialer struct {
	inner   contracts.Dialer
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedDialer(inner contracts.Dialer) *gatedDialer {
	return &gatedDialer{inner: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (d *gatedDialer) Dial(ctx context.Context) (contracts.LedgerSession, error) {
	d.once.Do(func() { close(d.entered) })
	select {
	case <-d.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return d.inner.Dial(ctx)
}

func TestClient_CancelledConnectCallerDoesNotFailOthers(t *testing.T) {
	store := repo.NewMemoryLedger(clock.NewMockClock(time.Unix(1700000000, 0)), domain.AllowRegression)
	dialer := newGatedDialer(store)
	c := NewClient(dialer, Config{ReadTimeout: 50 * time.Millisecond, DialTimeout: 5 * time.Second}, logging.NewNop(), nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() { errA <- c.Connect(ctxA) }()
	<-dialer.entered
	assert.Equal(t, contracts.Connecting, c.State())

	errB := make(chan error, 1)
	go func() { errB <- c.Connect(context.Background()) }()

	cancelA()
	err := <-errA
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.True(t, domain.IsRetryable(err))

	close(dialer.release)
	require.NoError(t, <-errB)
	assert.Equal(t, contracts.Connected, c.State())
	assert.Equal(t, 1, store.Dials())
}

func TestClient_DialTimeoutBoundsConnect(t *testing.T) {
	store := repo.NewMemoryLedger(clock.NewMockClock(time.Unix(1700000000, 0)), domain.AllowRegression)
	dialer := newGatedDialer(store)
	c := NewClient(dialer, Config{DialTimeout: 20 * time.Millisecond}, logging.NewNop(), nil)

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, contracts.Disconnected, c.State())
	assert.Zero(t, store.Dials())
}

func TestClient_StateTracksSessionUnderConcurrentDrop(t *testing.T) {
	c, store := connected(t)
	createPO100(t, c)

	for i := 0; i < 50; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.SetOnline(false)
			_, _ = c.GetProductUnits(context.Background(), "PO-100")
			store.SetOnline(true)
		}()
		go func() {
			defer wg.Done()
			_ = c.Connect(context.Background())
		}()
		wg.Wait()

		live := c.current.Load() != nil
		assert.Equal(t, live, c.State() == contracts.Connected, "iteration %d", i)
	}

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, contracts.Connected, c.State())
	_, err := c.GetProductUnits(context.Background(), "PO-100")
	require.NoError(t, err)
}

func TestClient_NotConnected(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.GetProductDetails(context.Background(), "PO-100")
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func TestClient_DialFailure(t *testing.T) {
	c, store := newTestClient(t)
	store.SetOnline(false)

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Equal(t, contracts.Disconnected, c.State())
}

func TestClient_TimeoutIsDistinctFromConnection(t *testing.T) {
	c, store := connected(t)
	createPO100(t, c)
	store.SetFault(func(ctx context.Context, op, po string, unit domain.UnitName) error {
		if op == "GetUnitStatus" {
			return repo.BlockUntilDone(ctx)
		}
		return nil
	})

	_, err := c.GetUnitStatus(context.Background(), "PO-100", domain.UnitMilling)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.NotErrorIs(t, err, domain.ErrConnection)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, contracts.Connected, c.State())
}

func TestClient_ConnectionLossDropsSession(t *testing.T) {
	c, store := connected(t)
	createPO100(t, c)

	store.SetOnline(false)
	_, err := c.GetProductUnits(context.Background(), "PO-100")
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Equal(t, contracts.Disconnected, c.State())

	store.SetOnline(true)
	_, err = c.GetProductUnits(context.Background(), "PO-100")
	assert.ErrorIs(t, err, domain.ErrConnection, "no silent reconnect")
	assert.Equal(t, 1, store.Dials())

	require.NoError(t, c.Connect(context.Background()))
	units, err := c.GetProductUnits(context.Background(), "PO-100")
	require.NoError(t, err)
	assert.Equal(t, []domain.UnitName{domain.UnitMilling, domain.UnitDrilling}, units)
	assert.Equal(t, 2, store.Dials())
}

func TestClient_RejectedMessagePassthrough(t *testing.T) {
	c, store := connected(t)
	createPO100(t, c)
	store.SetFault(func(ctx context.Context, op, po string, unit domain.UnitName) error {
		if op == "UpdateUnitStatus" {
			return domain.NewLedgerError(op, domain.KindRejected, domain.RevertReason("execution reverted: Unit locked by QA"), nil)
		}
		return nil
	})

	_, err := c.UpdateUnitStatus(context.Background(), writer, "PO-100", domain.UnitMilling, domain.StatusDone)
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, "Unit locked by QA", domain.LedgerMessage(err))
	assert.False(t, domain.IsRetryable(err))
}

func TestClient_DuplicateCreateLeavesDataUnchanged(t *testing.T) {
	c, _ := connected(t)
	createPO100(t, c)
	ctx := context.Background()

	err := c.CreateProduct(ctx, writer, contracts.NewProductRecord{
		InternalPO:  "PO-100",
		ExternalPO:  "OTHER",
		Name:        "Overwrite",
		CompanyName: "Evil",
		Units:       []domain.UnitName{domain.UnitBending},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateProduct)

	details, err := c.GetProductDetails(ctx, "PO-100")
	require.NoError(t, err)
	assert.Equal(t, "Bracket", details.Name)
	assert.Equal(t, "Acme", details.CompanyName)

	units, err := c.GetProductUnits(ctx, "PO-100")
	require.NoError(t, err)
	assert.Equal(t, []domain.UnitName{domain.UnitMilling, domain.UnitDrilling}, units)
}

func TestClient_GetProductUnitsIsIdempotent(t *testing.T) {
	c, _ := connected(t)
	createPO100(t, c)

	first, err := c.GetProductUnits(context.Background(), "PO-100")
	require.NoError(t, err)
	second, err := c.GetProductUnits(context.Background(), "PO-100")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClient_ResourceBudget(t *testing.T) {
	c, _ := connected(t)
	createPO100(t, c)
	ctx := context.Background()

	tight := writer
	tight.ResourceBudget = contracts.MutationCost
	_, err := c.UpdateUnitStatus(ctx, tight, "PO-100", domain.UnitMilling, domain.StatusDone)
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, "resource budget exceeded", domain.LedgerMessage(err))

	status, err := c.GetUnitStatus(ctx, "PO-100", domain.UnitMilling)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusToDo, status)
}

func TestClient_UnknownReferences(t *testing.T) {
	c, _ := connected(t)
	createPO100(t, c)
	ctx := context.Background()

	_, err := c.GetProductDetails(ctx, "PO-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.UpdateUnitStatus(ctx, writer, "PO-100", domain.UnitBending, domain.StatusDone)
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
}

func TestClient_Teardown(t *testing.T) {
	c, _ := connected(t)
	require.NoError(t, c.Teardown())
	assert.Equal(t, contracts.Disconnected, c.State())
	require.NoError(t, c.Teardown())
}
