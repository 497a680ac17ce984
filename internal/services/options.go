package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/spanner"
	"github.com/redis/go-redis/v9"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/ledgerclient"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/list_events"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/list_products"
	"github.com/light-bringer/worktrack-service/internal/app/product/repo"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/change_unit_status"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/check_completion"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/create_product"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/load_product"
	"github.com/light-bringer/worktrack-service/internal/config"
	"github.com/light-bringer/worktrack-service/internal/observability"
	"github.com/light-bringer/worktrack-service/internal/pkg/clock"
	"github.com/light-bringer/worktrack-service/internal/pkg/keylock"
	httptransport "github.com/light-bringer/worktrack-service/internal/transport/http"
)

// ServiceOptions holds all dependencies for the application.
type ServiceOptions struct {
	Ledger  *ledgerclient.Client
	Metrics *observability.Metrics

	// Commands
	CreateProduct    *create_product.Interactor
	ChangeUnitStatus *change_unit_status.Interactor
	CheckCompletion  *check_completion.Interactor

	// Queries
	LoadProduct  *load_product.Interactor
	ListProducts *list_products.Query
	ListEvents   *list_events.Query

	Router http.Handler

	spannerClient *spanner.Client
	redisClient   *redis.Client
	logger        *slog.Logger
}

// NewServiceOptions creates and wires up all application dependencies.
// The ledger session is not opened; call Ledger.Connect.
func NewServiceOptions(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ServiceOptions, error) {
	policy, err := cfg.RegressionPolicy()
	if err != nil {
		return nil, err
	}
	s := &ServiceOptions{
		Metrics: observability.NewMetrics(),
		logger:  logger,
	}

	// 1. Ledger backend
	dialer, eventsReadModel, err := s.newBackend(ctx, cfg, policy)
	if err != nil {
		return nil, err
	}

	s.Ledger = ledgerclient.NewClient(dialer, ledgerclient.Config{
		ReadTimeout:  cfg.LedgerReadTimeout,
		WriteTimeout: cfg.LedgerWriteTimeout,
		DialTimeout:  cfg.LedgerDialTimeout,
	}, logger, s.Metrics)

	// 2. Per-product lock
	locker, err := s.newLocker(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	// 3. Command use cases (write operations)
	machine := domain.NewStatusMachine(policy).WithRejectNoop(cfg.RejectNoopTransitions)
	s.CreateProduct = create_product.NewInteractor(s.Ledger, logger)
	s.ChangeUnitStatus = change_unit_status.NewInteractor(s.Ledger, machine, locker, logger)
	s.CheckCompletion = check_completion.NewInteractor(s.Ledger, logger)

	// 4. Query use cases (read operations)
	s.LoadProduct = load_product.NewInteractor(s.Ledger, logger, s.Metrics)
	s.ListProducts = list_products.NewQuery(s.Ledger, s.LoadProduct, cfg.LoadConcurrency, logger)
	s.ListEvents = list_events.NewQuery(eventsReadModel)

	// 5. HTTP transport
	s.Router = httptransport.NewRouter(httptransport.RouterConfig{
		Products: httptransport.NewProductHandler(
			s.CreateProduct,
			s.ChangeUnitStatus,
			s.CheckCompletion,
			s.LoadProduct,
			s.ListProducts,
			logger,
		),
		Events:         httptransport.NewEventsHandler(s.ListEvents),
		Ledger:         s.Ledger,
		Metrics:        s.Metrics,
		WriteRateLimit: cfg.RateLimitPerMinute,
	})

	return s, nil
}

func (s *ServiceOptions) newBackend(ctx context.Context, cfg *config.Config, policy domain.RegressionPolicy) (contracts.Dialer, list_events.EventsReadModel, error) {
	if cfg.LedgerBackend == config.BackendMemory {
		store := repo.NewMemoryLedger(clock.NewRealClock(), policy)
		s.logger.Warn("using in-memory ledger; state is lost on exit")
		return store, store, nil
	}

	// The events read model keeps its own client; ledger sessions come and go.
	client, err := spanner.NewClient(ctx, cfg.SpannerDatabase)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Spanner client: %w", err)
	}
	s.spannerClient = client
	return repo.NewSpannerDialer(cfg.SpannerDatabase, policy), repo.NewEventsReadModel(client), nil
}

func (s *ServiceOptions) newLocker(ctx context.Context, cfg *config.Config) (keylock.Locker, error) {
	if cfg.LockBackend != config.LockRedis {
		return keylock.NewLocal(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}
	s.redisClient = client
	return keylock.NewRedis(client, "worktrack:", cfg.LockTTL), nil
}

// Close closes all resources.
func (s *ServiceOptions) Close() {
	if s.Ledger != nil {
		if err := s.Ledger.Teardown(); err != nil {
			s.logger.Warn("ledger teardown failed", slog.Any("error", err))
		}
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.spannerClient != nil {
		s.spannerClient.Close()
	}
}
