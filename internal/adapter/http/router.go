package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/pokersettle/internal/adapter/http/handler"
	"github.com/iho/pokersettle/internal/adapter/http/middleware"
	"github.com/iho/pokersettle/internal/infrastructure/metrics"
	"github.com/iho/pokersettle/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	GameHandler        *handler.GameHandler
	TransactionHandler *handler.TransactionHandler
	SettlementHandler  *handler.SettlementHandler
	AuditHandler       *handler.AuditHandler
	HealthHandler      *handler.HealthHandler

	Logger           zerolog.Logger
	Metrics          *metrics.Metrics
	Gatherer         prometheus.Gatherer
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Actor)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Games
		r.Route("/games", func(r chi.Router) {
			r.Post("/", cfg.GameHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.GameHandler.Get)
				r.Post("/start", cfg.GameHandler.Start)
				r.Post("/end", cfg.GameHandler.End)

				r.Post("/transactions", cfg.TransactionHandler.Record)
				r.Get("/transactions", cfg.TransactionHandler.List)
				r.Get("/totals", cfg.TransactionHandler.Totals)
				r.Get("/reconciliation", cfg.TransactionHandler.Reconcile)

				r.Get("/settlement/validation", cfg.SettlementHandler.Validate)
				r.Post("/settlement", cfg.SettlementHandler.Calculate)
				r.Get("/settlements", cfg.SettlementHandler.ListByGame)

				r.Get("/audit/summary", cfg.AuditHandler.GameSummary)
			})
		})

		// Settlements
		r.Route("/settlements/{id}", func(r chi.Router) {
			r.Get("/", cfg.SettlementHandler.Get)
			r.Post("/complete", cfg.SettlementHandler.Complete)
			r.Post("/cancel", cfg.SettlementHandler.Cancel)
		})

		// Audit
		r.Get("/audit/{table}/{recordID}", cfg.AuditHandler.History)
		r.Get("/users/{id}/audit", cfg.AuditHandler.UserHistory)
	})

	return r
}
