// Package ledgerclient is the gateway between use cases and a ledger backend.
// It owns the session lifecycle, validates identifiers before dispatch and
// classifies every failure into the ledger error taxonomy.
package ledgerclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/observability"
)

// Config holds adapter timeouts.
type Config struct {
	// ReadTimeout bounds every read call.
	ReadTimeout time.Duration
	// WriteTimeout bounds writes whose CallOptions carry no timeout.
	WriteTimeout time.Duration
	// DialTimeout bounds a session dial, independent of any waiting caller.
	DialTimeout time.Duration
}

// DefaultConfig returns the timeouts used when none are configured.
func DefaultConfig() Config {
	return Config{ReadTimeout: 5 * time.Second, WriteTimeout: 30 * time.Second, DialTimeout: 10 * time.Second}
}

type sessionHandle struct {
	session contracts.LedgerSession
}

// Client implements contracts.Ledger on top of a Dialer.
type Client struct {
	dialer  contracts.Dialer
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics

	current    atomic.Pointer[sessionHandle]
	connecting atomic.Bool
	connect    singleflight.Group
}

var _ contracts.Ledger = (*Client)(nil)

// NewClient creates a disconnected Client. Call Connect before use.
func NewClient(dialer contracts.Dialer, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	def := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	return &Client{
		dialer:  dialer,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// State returns the current session state, derived from the live session.
func (c *Client) State() contracts.ConnState {
	if c.current.Load() != nil {
		return contracts.Connected
	}
	if c.connecting.Load() {
		return contracts.Connecting
	}
	return contracts.Disconnected
}

func (c *Client) publishState() {
	c.metrics.SetSessionState(int(c.State()))
}

// Connect establishes the session. It is idempotent and concurrent callers
// share a single dial. The dial is bounded by DialTimeout and outlives any
// one caller; a caller whose ctx ends first gets a Timeout error while the
// dial carries on for the others.
func (c *Client) Connect(ctx context.Context) error {
	if c.current.Load() != nil {
		return nil
	}

	ch := c.connect.DoChan("connect", func() (interface{}, error) {
		return nil, c.dial(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return domain.NewLedgerError("Connect", domain.KindTimeout, "connect wait", ctx.Err())
	}
}

func (c *Client) dial(parent context.Context) error {
	if c.current.Load() != nil {
		return nil
	}
	c.connecting.Store(true)
	c.publishState()
	defer func() {
		c.connecting.Store(false)
		c.publishState()
	}()

	ctx, cancel := context.WithTimeout(parent, c.cfg.DialTimeout)
	defer cancel()
	start := time.Now()

	session, err := c.dialer.Dial(ctx)
	if err != nil {
		err = classify("Connect", err)
		c.metrics.ObserveLedgerCall("Connect", string(domain.KindOf(err)), time.Since(start))
		c.logger.Warn("ledger connect failed", slog.Any("error", err))
		return err
	}

	c.current.Store(&sessionHandle{session: session})
	c.metrics.ObserveLedgerCall("Connect", "ok", time.Since(start))
	c.logger.Info("ledger session established")
	return nil
}

// Teardown releases the session.
func (c *Client) Teardown() error {
	h := c.current.Swap(nil)
	c.publishState()
	if h == nil {
		return nil
	}
	c.logger.Info("ledger session released")
	return h.session.Close()
}

// drop discards h after a connection failure. A newer session is left alone.
func (c *Client) drop(h *sessionHandle, cause error) {
	if !c.current.CompareAndSwap(h, nil) {
		return
	}
	c.publishState()
	c.logger.Warn("ledger session dropped", slog.Any("error", cause))
	_ = h.session.Close()
}

// call runs fn against the live session under a bounded wait.
func (c *Client) call(ctx context.Context, op string, timeout time.Duration, fn func(context.Context, contracts.LedgerSession) error) error {
	start := time.Now()
	err := c.invoke(ctx, op, timeout, fn)
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	c.metrics.ObserveLedgerCall(op, outcome, time.Since(start))
	return err
}

func (c *Client) invoke(ctx context.Context, op string, timeout time.Duration, fn func(context.Context, contracts.LedgerSession) error) error {
	h := c.current.Load()
	if h == nil {
		return domain.NewLedgerError(op, domain.KindConnection, "session not established", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := classify(op, fn(callCtx, h.session))
	if err != nil && domain.KindOf(err) == domain.KindConnection {
		c.drop(h, err)
	}
	return err
}

// classify converts any failure into a *domain.LedgerError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *domain.LedgerError
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewLedgerError(op, domain.KindTimeout, "", err)
	}
	return domain.NewLedgerError(op, domain.KindOf(err), "", err)
}

func invalid(op string, err error) error {
	return domain.NewLedgerError(op, domain.KindOf(err), "", err)
}

func validateUnit(op, internalPO string, unit domain.UnitName) error {
	if err := domain.ValidatePO(internalPO); err != nil {
		return invalid(op, err)
	}
	if !unit.IsValid() {
		return invalid(op, fmt.Errorf("%w: unknown unit %q", domain.ErrInvalidInput, unit))
	}
	return nil
}

func (c *Client) writeTimeout(opts contracts.CallOptions) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return c.cfg.WriteTimeout
}

// CreateProduct writes a new product with all units in to-do.
func (c *Client) CreateProduct(ctx context.Context, opts contracts.CallOptions, rec contracts.NewProductRecord) error {
	const op = "CreateProduct"
	if err := opts.Validate(); err != nil {
		return invalid(op, err)
	}
	if err := domain.ValidatePO(rec.InternalPO); err != nil {
		return invalid(op, err)
	}
	if len(rec.Units) == 0 {
		return invalid(op, fmt.Errorf("%w: product needs at least one unit", domain.ErrInvalidInput))
	}
	seen := make(map[domain.UnitName]bool, len(rec.Units))
	for _, u := range rec.Units {
		if !u.IsValid() {
			return invalid(op, fmt.Errorf("%w: unknown unit %q", domain.ErrInvalidInput, u))
		}
		if seen[u] {
			return invalid(op, fmt.Errorf("%w: duplicate unit %q", domain.ErrInvalidInput, u))
		}
		seen[u] = true
	}

	return c.call(ctx, op, c.writeTimeout(opts), func(ctx context.Context, s contracts.LedgerSession) error {
		return s.CreateProduct(ctx, opts, rec)
	})
}

// GetProductDetails reads the product header.
func (c *Client) GetProductDetails(ctx context.Context, internalPO string) (contracts.ProductDetails, error) {
	const op = "GetProductDetails"
	if err := domain.ValidatePO(internalPO); err != nil {
		return contracts.ProductDetails{}, invalid(op, err)
	}
	var out contracts.ProductDetails
	err := c.call(ctx, op, c.cfg.ReadTimeout, func(ctx context.Context, s contracts.LedgerSession) error {
		var err error
		out, err = s.GetProductDetails(ctx, internalPO)
		return err
	})
	return out, err
}

// GetProductUnits reads the ordered unit names.
func (c *Client) GetProductUnits(ctx context.Context, internalPO string) ([]domain.UnitName, error) {
	const op = "GetProductUnits"
	if err := domain.ValidatePO(internalPO); err != nil {
		return nil, invalid(op, err)
	}
	var out []domain.UnitName
	err := c.call(ctx, op, c.cfg.ReadTimeout, func(ctx context.Context, s contracts.LedgerSession) error {
		var err error
		out, err = s.GetProductUnits(ctx, internalPO)
		return err
	})
	return out, err
}

// GetUnitStatus reads one unit's status.
func (c *Client) GetUnitStatus(ctx context.Context, internalPO string, unit domain.UnitName) (domain.Status, error) {
	const op = "GetUnitStatus"
	if err := validateUnit(op, internalPO, unit); err != nil {
		return "", err
	}
	var out domain.Status
	err := c.call(ctx, op, c.cfg.ReadTimeout, func(ctx context.Context, s contracts.LedgerSession) error {
		var err error
		out, err = s.GetUnitStatus(ctx, internalPO, unit)
		return err
	})
	return out, err
}

// GetUnitTimestamp reads one unit's status timestamp.
func (c *Client) GetUnitTimestamp(ctx context.Context, internalPO string, unit domain.UnitName) (domain.StatusTime, error) {
	const op = "GetUnitTimestamp"
	if err := validateUnit(op, internalPO, unit); err != nil {
		return domain.StatusTime{}, err
	}
	var out domain.StatusTime
	err := c.call(ctx, op, c.cfg.ReadTimeout, func(ctx context.Context, s contracts.LedgerSession) error {
		var err error
		out, err = s.GetUnitTimestamp(ctx, internalPO, unit)
		return err
	})
	return out, err
}

// UpdateUnitStatus writes a unit status and returns the ledger receipt.
func (c *Client) UpdateUnitStatus(ctx context.Context, opts contracts.CallOptions, internalPO string, unit domain.UnitName, status domain.Status) (contracts.Receipt, error) {
	const op = "UpdateUnitStatus"
	if err := opts.Validate(); err != nil {
		return contracts.Receipt{}, invalid(op, err)
	}
	if err := validateUnit(op, internalPO, unit); err != nil {
		return contracts.Receipt{}, err
	}
	if !status.IsValid() {
		return contracts.Receipt{}, invalid(op, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status))
	}
	var out contracts.Receipt
	err := c.call(ctx, op, c.writeTimeout(opts), func(ctx context.Context, s contracts.LedgerSession) error {
		var err error
		out, err = s.UpdateUnitStatus(ctx, opts, internalPO, unit, status)
		return err
	})
	return out, err
}

// CheckProductCompletion asks the ledger to recompute and persist completion.
func (c *Client) CheckProductCompletion(ctx context.Context, opts contracts.CallOptions, internalPO string) (bool, error) {
	const op = "CheckProductCompletion"
	if err := opts.Validate(); err != nil {
		return false, invalid(op, err)
	}
	if err := domain.ValidatePO(internalPO); err != nil {
		return false, invalid(op, err)
	}
	var out bool
	err := c.call(ctx, op, c.writeTimeout(opts), func(ctx context.Context, s contracts.LedgerSession) error {
		var err error
		out, err = s.CheckProductCompletion(ctx, opts, internalPO)
		return err
	})
	return out, err
}

// ListInternalPOs lists every tracked product in creation order.
func (c *Client) ListInternalPOs(ctx context.Context) ([]string, error) {
	var out []string
	err := c.call(ctx, "ListInternalPOs", c.cfg.ReadTimeout, func(ctx context.Context, s contracts.LedgerSession) error {
		var err error
		out, err = s.ListInternalPOs(ctx)
		return err
	})
	return out, err
}
