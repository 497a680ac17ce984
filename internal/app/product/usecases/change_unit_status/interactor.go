package change_unit_status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/pkg/keylock"
)

// Request contains the data needed to change one unit's status.
type Request struct {
	Product *domain.Product
	Unit    domain.UnitName
	Status  domain.Status
	Options contracts.CallOptions
}

// Response reports the confirmed write.
type Response struct {
	Receipt   contracts.Receipt
	Completed bool
	// Drift is true when the ledger's completion answer disagreed with the
	// local all-done hint.
	Drift bool
}

// Interactor handles the change unit status use case.
type Interactor struct {
	ledger  contracts.Ledger
	machine *domain.StatusMachine
	locker  keylock.Locker
	logger  *slog.Logger
}

// NewInteractor creates a new change unit status interactor.
func NewInteractor(
	ledger contracts.Ledger,
	machine *domain.StatusMachine,
	locker keylock.Locker,
	logger *slog.Logger,
) *Interactor {
	return &Interactor{
		ledger:  ledger,
		machine: machine,
		locker:  locker,
		logger:  logger,
	}
}

// Execute writes the requested status to the ledger and applies the receipt to
// req.Product. On failure the product is left unchanged.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Validate request
	if req.Product == nil {
		return nil, fmt.Errorf("%w: product is required", domain.ErrInvalidInput)
	}
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, req.Status)
	}
	product := req.Product
	po := product.InternalPO()

	// 2. Serialize writes per product
	unlock, err := i.locker.Lock(ctx, po)
	if err != nil {
		if errors.Is(err, keylock.ErrLockAcquire) {
			return nil, domain.NewLedgerError("UpdateUnitStatus", domain.KindTimeout, "lock wait", err)
		}
		return nil, fmt.Errorf("failed to lock product %s: %w", po, err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			i.logger.Warn("failed to release product lock", slog.String("internal_po", po), slog.Any("error", err))
		}
	}()

	// 3. Check the unit and the transition against the last confirmed state
	unit, ok := product.Unit(req.Unit)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no unit %q", domain.ErrUnitNotFound, po, req.Unit)
	}
	if _, err := i.machine.Transition(unit.Status(), req.Status); err != nil {
		return nil, err
	}

	// 4. Ensure a session
	if i.ledger.State() != contracts.Connected {
		if err := i.ledger.Connect(ctx); err != nil {
			return nil, err
		}
	}

	// 5. Write
	receipt, err := i.ledger.UpdateUnitStatus(ctx, req.Options, po, req.Unit, req.Status)
	if err != nil {
		i.afterFailure(ctx, po, err)
		return nil, err
	}

	// 6. Apply the confirmed state
	if err := product.ApplyConfirmedStatus(req.Unit, receipt.Status, domain.NewStatusTime(receipt.Timestamp)); err != nil {
		return nil, fmt.Errorf("failed to apply receipt %s: %w", receipt.TxID, err)
	}

	resp := &Response{Receipt: receipt}
	if receipt.Status != domain.StatusDone {
		return resp, nil
	}

	// 7. Ask the ledger for completion
	completed, err := i.ledger.CheckProductCompletion(ctx, req.Options, po)
	if err != nil {
		i.afterFailure(ctx, po, err)
		return resp, fmt.Errorf("status written, completion check failed: %w", err)
	}
	resp.Completed = completed
	resp.Drift = product.ConfirmCompletion(completed)
	if resp.Drift {
		i.logger.Warn("completion drift",
			slog.String("internal_po", po),
			slog.Bool("ledger_completed", completed),
			slog.Bool("all_units_done", product.AllUnitsDone()))
	}
	return resp, nil
}

// afterFailure re-establishes a dropped session so the caller's retry finds
// it live. The failed write is not replayed.
func (i *Interactor) afterFailure(ctx context.Context, po string, err error) {
	i.logger.Warn("ledger write failed",
		slog.String("internal_po", po),
		slog.String("kind", string(domain.KindOf(err))),
		slog.String("ledger_message", domain.LedgerMessage(err)),
		slog.Any("error", err))

	if domain.KindOf(err) != domain.KindConnection {
		return
	}
	if cerr := i.ledger.Connect(ctx); cerr != nil {
		i.logger.Warn("reconnect failed", slog.String("internal_po", po), slog.Any("error", cerr))
		return
	}
	i.logger.Info("ledger session re-established", slog.String("internal_po", po))
}
