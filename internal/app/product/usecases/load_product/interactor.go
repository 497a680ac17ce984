package load_product

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/observability"
)

// UnitFailure records a unit whose reads failed during a load.
type UnitFailure struct {
	Unit domain.UnitName
	Err  error
}

// LoadResult is a loaded product plus the units that could not be read.
type LoadResult struct {
	Product  *domain.Product
	Failures []UnitFailure
}

// Partial reports whether any unit failed to load.
func (r *LoadResult) Partial() bool {
	return len(r.Failures) > 0
}

// Interactor loads a product snapshot from the ledger.
type Interactor struct {
	ledger  contracts.Ledger
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewInteractor creates a new load product interactor.
func NewInteractor(ledger contracts.Ledger, logger *slog.Logger, metrics *observability.Metrics) *Interactor {
	return &Interactor{
		ledger:  ledger,
		logger:  logger,
		metrics: metrics,
	}
}

// Execute reads the product header, its unit list and every unit's status and
// timestamp. Per-unit failures do not abort the load. When ctx ends mid-load
// the partial result is returned together with a Timeout error. Every call
// reads the ledger under its own ctx and returns a result it owns.
func (i *Interactor) Execute(ctx context.Context, internalPO string) (*LoadResult, error) {
	if err := domain.ValidatePO(internalPO); err != nil {
		return nil, err
	}

	return i.load(ctx, internalPO)
}

func (i *Interactor) load(ctx context.Context, internalPO string) (*LoadResult, error) {
	if err := i.ensureConnected(ctx); err != nil {
		return nil, err
	}

	var details contracts.ProductDetails
	err := i.readWithRetry(ctx, func() error {
		var err error
		details, err = i.ledger.GetProductDetails(ctx, internalPO)
		return err
	})
	if err != nil {
		return nil, err
	}

	var names []domain.UnitName
	err = i.readWithRetry(ctx, func() error {
		var err error
		names, err = i.ledger.GetProductUnits(ctx, internalPO)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	units := make([]domain.Unit, 0, len(names))
	var interrupted error

	for _, name := range names {
		if interrupted == nil && ctx.Err() != nil {
			interrupted = domain.NewLedgerError("LoadProduct", domain.KindTimeout, "load interrupted", ctx.Err())
		}
		if interrupted != nil {
			units = append(units, domain.UnknownUnit(name))
			result.Failures = append(result.Failures, UnitFailure{Unit: name, Err: interrupted})
			continue
		}

		unit, err := i.readUnit(ctx, internalPO, name)
		if err != nil {
			i.logger.Warn("unit load failed",
				slog.String("internal_po", internalPO),
				slog.String("unit", string(name)),
				slog.Any("error", err))
			i.metrics.IncUnitLoadFailure(string(domain.KindOf(err)))
			units = append(units, domain.UnknownUnit(name))
			result.Failures = append(result.Failures, UnitFailure{Unit: name, Err: err})
			if ctx.Err() != nil {
				interrupted = domain.NewLedgerError("LoadProduct", domain.KindTimeout, "load interrupted", ctx.Err())
			}
			continue
		}
		units = append(units, unit)
	}

	product, err := domain.ReconstructProduct(
		details.InternalPO,
		details.ExternalPO,
		details.Name,
		details.CompanyName,
		details.FileHash,
		details.CreatedAt,
		units,
		details.IsCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct product %s: %w", internalPO, err)
	}
	result.Product = product

	return result, interrupted
}

func (i *Interactor) readUnit(ctx context.Context, internalPO string, name domain.UnitName) (domain.Unit, error) {
	var status domain.Status
	err := i.readWithRetry(ctx, func() error {
		var err error
		status, err = i.ledger.GetUnitStatus(ctx, internalPO, name)
		return err
	})
	if err != nil {
		return domain.Unit{}, err
	}

	var stamp domain.StatusTime
	err = i.readWithRetry(ctx, func() error {
		var err error
		stamp, err = i.ledger.GetUnitTimestamp(ctx, internalPO, name)
		return err
	})
	if err != nil {
		return domain.Unit{}, err
	}

	return domain.ReconstructUnit(name, status, stamp), nil
}

// readWithRetry reconnects once after a connection failure and retries read once.
func (i *Interactor) readWithRetry(ctx context.Context, read func() error) error {
	err := read()
	if domain.KindOf(err) != domain.KindConnection {
		return err
	}

	i.logger.Info("reconnecting after connection failure", slog.Any("error", err))
	if cerr := i.ledger.Connect(ctx); cerr != nil {
		return err
	}
	return read()
}

func (i *Interactor) ensureConnected(ctx context.Context) error {
	if i.ledger.State() == contracts.Connected {
		return nil
	}
	return i.ledger.Connect(ctx)
}
