package list_products

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/filter_products"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/load_product"
)

// DefaultConcurrency bounds parallel product loads when none is configured.
const DefaultConcurrency = 4

// Request contains the filter applied after loading.
type Request struct {
	Spec filter_products.Spec
}

// Failure records a product that could not be loaded.
type Failure struct {
	InternalPO string
	Err        error
}

// Response holds the filtered products and the load outcome.
type Response struct {
	Products []*domain.Product
	// Companies lists every company of the loaded catalog, before filtering.
	Companies []string
	Failures  []Failure
	// Partial counts loaded products that have unknown units.
	Partial int
}

// ProductLoader loads one product snapshot.
type ProductLoader interface {
	Execute(ctx context.Context, internalPO string) (*load_product.LoadResult, error)
}

// Query handles the list products query use case.
type Query struct {
	ledger      contracts.Ledger
	loader      ProductLoader
	concurrency int
	logger      *slog.Logger
}

// NewQuery creates a new list products query.
func NewQuery(ledger contracts.Ledger, loader ProductLoader, concurrency int, logger *slog.Logger) *Query {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Query{
		ledger:      ledger,
		loader:      loader,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Execute loads the ledger catalog and filters it. Products that fail to
// load are reported in Failures and left out of the listing.
func (q *Query) Execute(ctx context.Context, req *Request) (*Response, error) {
	if q.ledger.State() != contracts.Connected {
		if err := q.ledger.Connect(ctx); err != nil {
			return nil, err
		}
	}

	internalPOs, err := q.ledger.ListInternalPOs(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*load_product.LoadResult, len(internalPOs))
	errs := make([]error, len(internalPOs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.concurrency)
	for idx, po := range internalPOs {
		g.Go(func() error {
			results[idx], errs[idx] = q.loader.Execute(gctx, po)
			return nil
		})
	}
	_ = g.Wait()

	resp := &Response{}
	loaded := make([]*domain.Product, 0, len(internalPOs))
	for idx, po := range internalPOs {
		result := results[idx]
		if errs[idx] != nil {
			q.logger.Warn("product load failed", slog.String("internal_po", po), slog.Any("error", errs[idx]))
			resp.Failures = append(resp.Failures, Failure{InternalPO: po, Err: errs[idx]})
			if result == nil || result.Product == nil {
				continue
			}
		}
		if result.Partial() {
			resp.Partial++
		}
		loaded = append(loaded, result.Product)
	}

	resp.Companies = filter_products.Companies(loaded)
	resp.Products = filter_products.Filter(loaded, req.Spec)
	return resp, nil
}
