package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/fxledger/internal/adapter/http/handler"
	"github.com/iho/fxledger/internal/adapter/http/middleware"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
	"github.com/iho/fxledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TransactionHandler   *handler.TransactionHandler
	VaultTransferHandler *handler.VaultTransferHandler
	BalanceHandler       *handler.BalanceHandler
	RateHandler          *handler.RateHandler
	HealthHandler        *handler.HealthHandler
	IdempotencyStore     usecase.IdempotencyStore
	Logger               zerolog.Logger
	Metrics              *metrics.Metrics
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	r.Use(middleware.Recovery)

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/income", cfg.TransactionHandler.CreateIncome)
			r.Post("/expense", cfg.TransactionHandler.CreateExpense)
			r.Post("/exchange", cfg.TransactionHandler.CreateExchange)
			r.Post("/transfer", cfg.TransactionHandler.CreateTransfer)
			r.Get("/{id}", cfg.TransactionHandler.Get)
			r.Post("/{id}/complete", cfg.TransactionHandler.Complete)
			r.Post("/{id}/cancel", cfg.TransactionHandler.Cancel)
			r.Post("/{id}/fail", cfg.TransactionHandler.Fail)
			r.Post("/{id}/retry", cfg.TransactionHandler.Retry)
			r.Post("/{id}/approve", cfg.TransactionHandler.Approve)
			r.Post("/{id}/receive", cfg.TransactionHandler.Receive)
		})

		// Branches
		r.Route("/branches", func(r chi.Router) {
			r.Get("/{id}/transactions", cfg.TransactionHandler.ListByBranch)
		})

		// Vault transfers
		r.Route("/vault-transfers", func(r chi.Router) {
			r.Post("/", cfg.VaultTransferHandler.Initiate)
			r.Get("/", cfg.VaultTransferHandler.List)
			r.Get("/{id}", cfg.VaultTransferHandler.Get)
			r.Post("/{id}/approve", cfg.VaultTransferHandler.Approve)
			r.Post("/{id}/reject", cfg.VaultTransferHandler.Reject)
			r.Post("/{id}/cancel", cfg.VaultTransferHandler.Cancel)
			r.Post("/{id}/complete", cfg.VaultTransferHandler.Complete)
		})

		// Balances
		r.Route("/holders/{id}", func(r chi.Router) {
			r.Get("/balances", cfg.BalanceHandler.List)
			r.Get("/balances/{currency}", cfg.BalanceHandler.Get)
			r.Get("/balances/{currency}/history", cfg.BalanceHandler.History)
			r.Post("/adjust", cfg.BalanceHandler.Adjust)
			r.Post("/reserve", cfg.BalanceHandler.Reserve)
			r.Post("/release", cfg.BalanceHandler.Release)
			r.Post("/commit", cfg.BalanceHandler.Commit)
			r.Post("/reconcile", cfg.BalanceHandler.Reconcile)
		})

		// Rates
		r.Post("/rates", cfg.RateHandler.Publish)
		r.Get("/rates/{from}/{to}", cfg.RateHandler.Latest)
	})

	return r
}
