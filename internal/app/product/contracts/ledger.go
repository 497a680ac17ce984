package contracts

import (
	"context"
	"fmt"
	"time"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
)

// Resource budgets for ledger writes. Every buffered mutation costs
// MutationCost units; a write whose plan exceeds its budget is rejected.
const (
	MutationCost        = 20000
	DefaultCreateBudget = 500000
	DefaultUpdateBudget = 200000
)

// CallOptions is the fixed per-call configuration for ledger writes.
type CallOptions struct {
	// ActingIdentity is the opaque writer credential supplied by the session provider.
	ActingIdentity string
	// Timeout bounds the call; zero selects the adapter default.
	Timeout time.Duration
	// ResourceBudget caps the write's mutation cost; zero selects the operation default.
	ResourceBudget int
}

// BudgetOr returns the configured budget, or def when none was set.
func (o CallOptions) BudgetOr(def int) int {
	if o.ResourceBudget > 0 {
		return o.ResourceBudget
	}
	return def
}

// Validate checks fields required by every write.
func (o CallOptions) Validate() error {
	if o.ActingIdentity == "" {
		return fmt.Errorf("%w: acting identity is required", domain.ErrInvalidInput)
	}
	if o.Timeout < 0 || o.ResourceBudget < 0 {
		return fmt.Errorf("%w: negative call option", domain.ErrInvalidInput)
	}
	return nil
}

// NewProductRecord is the payload of a CreateProduct write.
type NewProductRecord struct {
	InternalPO  string
	ExternalPO  string
	Name        string
	CompanyName string
	FileHash    string
	Units       []domain.UnitName
}

// ProductDetails is the immutable product header as stored by the ledger.
type ProductDetails struct {
	InternalPO  string
	ExternalPO  string
	Name        string
	CompanyName string
	FileHash    string
	CreatedBy   string
	CreatedAt   domain.StatusTime
	IsCompleted bool
}

// Receipt confirms an accepted status write.
type Receipt struct {
	InternalPO string
	Unit       domain.UnitName
	Status     domain.Status
	// Timestamp is assigned by the ledger, in seconds since epoch.
	Timestamp int64
	TxID      string
}

// LedgerSession is one live connection to a ledger backend.
// Errors are *domain.LedgerError values.
type LedgerSession interface {
	CreateProduct(ctx context.Context, opts CallOptions, rec NewProductRecord) error
	GetProductDetails(ctx context.Context, internalPO string) (ProductDetails, error)
	GetProductUnits(ctx context.Context, internalPO string) ([]domain.UnitName, error)
	GetUnitStatus(ctx context.Context, internalPO string, unit domain.UnitName) (domain.Status, error)
	GetUnitTimestamp(ctx context.Context, internalPO string, unit domain.UnitName) (domain.StatusTime, error)
	UpdateUnitStatus(ctx context.Context, opts CallOptions, internalPO string, unit domain.UnitName, status domain.Status) (Receipt, error)
	CheckProductCompletion(ctx context.Context, opts CallOptions, internalPO string) (bool, error)
	ListInternalPOs(ctx context.Context) ([]string, error)
	Close() error
}

// Dialer opens ledger sessions.
type Dialer interface {
	Dial(ctx context.Context) (LedgerSession, error)
}

// ConnState is the adapter's session state.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Ledger is the adapter surface consumed by use cases and queries.
type Ledger interface {
	Connect(ctx context.Context) error
	Teardown() error
	State() ConnState

	CreateProduct(ctx context.Context, opts CallOptions, rec NewProductRecord) error
	GetProductDetails(ctx context.Context, internalPO string) (ProductDetails, error)
	GetProductUnits(ctx context.Context, internalPO string) ([]domain.UnitName, error)
	GetUnitStatus(ctx context.Context, internalPO string, unit domain.UnitName) (domain.Status, error)
	GetUnitTimestamp(ctx context.Context, internalPO string, unit domain.UnitName) (domain.StatusTime, error)
	UpdateUnitStatus(ctx context.Context, opts CallOptions, internalPO string, unit domain.UnitName, status domain.Status) (Receipt, error)
	CheckProductCompletion(ctx context.Context, opts CallOptions, internalPO string) (bool, error)
	ListInternalPOs(ctx context.Context) ([]string, error)
}
