package repo

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/pkg/committer"
)

// Store-side rejection messages, returned verbatim to callers.
const (
	msgBudgetExceeded  = "resource budget exceeded"
	msgRegression      = "status regression not allowed"
	msgInvalidStatus   = "invalid status"
	msgMissingIdentity = "caller identity required"
)

// storeRules holds the business rules every backend enforces before committing.
type storeRules struct {
	machine *domain.StatusMachine
}

func newStoreRules(policy domain.RegressionPolicy) storeRules {
	return storeRules{machine: domain.NewStatusMachine(policy)}
}

func (r storeRules) checkWriter(op string, opts contracts.CallOptions) error {
	if opts.ActingIdentity == "" {
		return domain.NewLedgerError(op, domain.KindRejected, msgMissingIdentity, nil)
	}
	return nil
}

func (r storeRules) checkTransition(op string, current, requested domain.Status) error {
	if !requested.IsValid() {
		return domain.NewLedgerError(op, domain.KindRejected, msgInvalidStatus, nil)
	}
	if _, err := r.machine.Transition(current, requested); err != nil {
		return domain.NewLedgerError(op, domain.KindRejected, msgRegression, err)
	}
	return nil
}

func checkBudget(op string, mutations, budget int) error {
	if mutations*contracts.MutationCost > budget {
		return domain.NewLedgerError(op, domain.KindRejected, msgBudgetExceeded,
			fmt.Errorf("%w: %d mutations, budget %d", committer.ErrBudgetExceeded, mutations, budget))
	}
	return nil
}

// mapError converts a backend failure into a *domain.LedgerError.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var le *domain.LedgerError
	if errors.As(err, &le) {
		return le
	}
	if errors.Is(err, committer.ErrBudgetExceeded) {
		return domain.NewLedgerError(op, domain.KindRejected, msgBudgetExceeded, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewLedgerError(op, domain.KindTimeout, "", err)
	}
	if kind := domain.KindOf(err); kind != domain.KindInternal {
		return domain.NewLedgerError(op, kind, "", err)
	}

	switch spanner.ErrCode(err) {
	case codes.NotFound:
		return domain.NewLedgerError(op, domain.KindNotFound, "", err)
	case codes.AlreadyExists:
		return domain.NewLedgerError(op, domain.KindDuplicateProduct, "", err)
	case codes.Unavailable:
		return domain.NewLedgerError(op, domain.KindConnection, "", err)
	case codes.DeadlineExceeded, codes.Canceled:
		return domain.NewLedgerError(op, domain.KindTimeout, "", err)
	case codes.FailedPrecondition, codes.Aborted:
		return domain.NewLedgerError(op, domain.KindRejected, domain.RevertReason(spanner.ErrDesc(err)), err)
	}
	return domain.NewLedgerError(op, domain.KindInternal, "", err)
}
