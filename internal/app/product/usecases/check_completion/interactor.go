package check_completion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
)

// Request contains the product to re-check.
type Request struct {
	Product *domain.Product
	Options contracts.CallOptions
}

// Response carries the ledger's completion answer.
type Response struct {
	Completed bool
	Drift     bool
}

// Interactor handles the explicit completion check use case.
type Interactor struct {
	ledger contracts.Ledger
	logger *slog.Logger
}

// NewInteractor creates a new check completion interactor.
func NewInteractor(ledger contracts.Ledger, logger *slog.Logger) *Interactor {
	return &Interactor{ledger: ledger, logger: logger}
}

// Execute asks the ledger to recompute completion and stores the answer on
// req.Product.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.Product == nil {
		return nil, fmt.Errorf("%w: product is required", domain.ErrInvalidInput)
	}
	po := req.Product.InternalPO()

	if i.ledger.State() != contracts.Connected {
		if err := i.ledger.Connect(ctx); err != nil {
			return nil, err
		}
	}

	completed, err := i.ledger.CheckProductCompletion(ctx, req.Options, po)
	if err != nil {
		return nil, err
	}

	drift := req.Product.ConfirmCompletion(completed)
	if drift {
		i.logger.Warn("completion drift",
			slog.String("internal_po", po),
			slog.Bool("ledger_completed", completed),
			slog.Bool("all_units_done", req.Product.AllUnitsDone()))
	}
	return &Response{Completed: completed, Drift: drift}, nil
}
