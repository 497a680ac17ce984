package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/observability"
)

// RouterConfig holds the router's collaborators.
type RouterConfig struct {
	Products *ProductHandler
	Events   *EventsHandler
	Ledger   contracts.Ledger
	Metrics  *observability.Metrics
	// WriteRateLimit caps writes per client IP per minute; zero disables it.
	WriteRateLimit int
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cfg.Metrics.Middleware)

	r.Get("/healthz", health(cfg.Ledger))
	r.Handle("/metrics", cfg.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", cfg.Products.ListProducts)
		r.Get("/products/{internalPO}", cfg.Products.GetProduct)
		r.Get("/companies", cfg.Products.ListCompanies)
		r.Method(http.MethodGet, "/events", cfg.Events)

		r.Group(func(r chi.Router) {
			if cfg.WriteRateLimit > 0 {
				r.Use(httprate.Limit(cfg.WriteRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
			}
			r.Post("/products", cfg.Products.CreateProduct)
			r.Put("/products/{internalPO}/units/{unit}/status", cfg.Products.ChangeUnitStatus)
			r.Post("/products/{internalPO}/completion", cfg.Products.CheckCompletion)
		})
	})

	return r
}

func health(ledger contracts.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := ledger.State()
		code := http.StatusOK
		if state != contracts.Connected {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{"ledger": state.String()})
	}
}
