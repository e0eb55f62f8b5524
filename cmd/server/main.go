package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	httpAdapter "github.com/iho/fxledger/internal/adapter/http"
	"github.com/iho/fxledger/internal/adapter/http/handler"
	postgresRepo "github.com/iho/fxledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/fxledger/internal/adapter/repository/redis"
	"github.com/iho/fxledger/internal/infrastructure/config"
	"github.com/iho/fxledger/internal/infrastructure/logger"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
	"github.com/iho/fxledger/internal/infrastructure/postgres"
	"github.com/iho/fxledger/internal/infrastructure/redis"
	"github.com/iho/fxledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log.Logger = appLogger

	limits, threshold, err := ledgerPolicy(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ledger policy configuration")
	}

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, "internal/infrastructure/postgres/migrations"); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	appMetrics := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	balanceRepo := postgresRepo.NewBalanceRepository(pool)
	historyRepo := postgresRepo.NewHistoryRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	vaultTransferRepo := postgresRepo.NewVaultTransferRepository(pool)
	rateRepo := postgresRepo.NewRateRepository(pool)
	directoryRepo := postgresRepo.NewDirectoryRepository(pool)
	retrier := postgresRepo.NewRetrier(appLogger)
	idGen := postgresRepo.NewULIDGenerator()

	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	rateSource := redisRepo.NewRateCache(redisClient, rateRepo, cfg.RateCacheTTL, appLogger)

	// Initialize use cases
	balanceUC := usecase.NewBalanceUseCase(txManager, balanceRepo, historyRepo, retrier, idGen, appMetrics)
	validator := usecase.NewValidationService(directoryRepo, rateSource, balanceRepo, transactionRepo, limits, appMetrics)
	transactionUC := usecase.NewTransactionUseCase(txManager, transactionRepo, balanceUC, validator, rateSource, retrier, idGen, appMetrics)
	vaultTransferUC := usecase.NewVaultTransferUseCase(txManager, vaultTransferRepo, balanceUC, directoryRepo, retrier, idGen, threshold, appMetrics)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		TransactionHandler:   handler.NewTransactionHandler(transactionUC),
		VaultTransferHandler: handler.NewVaultTransferHandler(vaultTransferUC),
		BalanceHandler:       handler.NewBalanceHandler(balanceUC),
		RateHandler:          handler.NewRateHandler(rateSource, rateRepo, rateSource),
		HealthHandler:        handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:     idempotencyStore,
		Logger:               appLogger,
		Metrics:              appMetrics,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// ledgerPolicy parses the decimal-valued policy settings, which are carried
// as strings in the environment to avoid float rounding.
func ledgerPolicy(cfg *config.Config) (usecase.Limits, decimal.Decimal, error) {
	maxTxn, err := decimal.NewFromString(cfg.MaxTransactionAmount)
	if err != nil {
		return usecase.Limits{}, decimal.Zero, fmt.Errorf("MAX_TRANSACTION_AMOUNT: %w", err)
	}
	maxDaily, err := decimal.NewFromString(cfg.MaxDailyBranchAmount)
	if err != nil {
		return usecase.Limits{}, decimal.Zero, fmt.Errorf("MAX_DAILY_BRANCH_AMOUNT: %w", err)
	}
	threshold, err := decimal.NewFromString(cfg.VaultApprovalThreshold)
	if err != nil {
		return usecase.Limits{}, decimal.Zero, fmt.Errorf("VAULT_APPROVAL_THRESHOLD: %w", err)
	}

	limits := usecase.Limits{
		MaxTransactionAmount:      maxTxn,
		MaxDailyBranchAmount:      maxDaily,
		MaxCustomerDailyExchanges: cfg.MaxCustomerDailyExchanges,
		RateStalenessWindow:       cfg.RateStalenessWindow,
	}
	return limits, threshold, nil
}
