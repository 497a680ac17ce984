package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ledgerCalls     *prometheus.CounterVec
	ledgerDuration  *prometheus.HistogramVec
	sessionState    prometheus.Gauge
	loadFailures    *prometheus.CounterVec
}

// NewMetrics initializes the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worktrack_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worktrack_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	ledgerCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worktrack_ledger_calls_total",
		Help: "Ledger adapter calls by operation and outcome kind.",
	}, []string{"op", "outcome"})
	ledgerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worktrack_ledger_call_duration_seconds",
		Help:    "Ledger adapter call duration per operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	sessionState := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "worktrack_ledger_session_state",
		Help: "Ledger session state: 0 disconnected, 1 connecting, 2 connected.",
	})
	loadFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worktrack_unit_load_failures_total",
		Help: "Unit reads downgraded to unknown during product loads.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, ledgerCalls, ledgerDuration, sessionState, loadFailures)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		ledgerCalls:     ledgerCalls,
		ledgerDuration:  ledgerDuration,
		sessionState:    sessionState,
		loadFailures:    loadFailures,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveLedgerCall records one adapter call.
func (m *Metrics) ObserveLedgerCall(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ledgerCalls.WithLabelValues(op, outcome).Inc()
	m.ledgerDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SetSessionState publishes the adapter session state.
func (m *Metrics) SetSessionState(state int) {
	if m == nil {
		return
	}
	m.sessionState.Set(float64(state))
}

// IncUnitLoadFailure counts a unit downgraded to unknown.
func (m *Metrics) IncUnitLoadFailure(kind string) {
	if m == nil {
		return
	}
	m.loadFailures.WithLabelValues(kind).Inc()
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
