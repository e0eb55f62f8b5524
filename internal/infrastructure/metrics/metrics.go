package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transaction metrics
	TransactionsCreated   *prometheus.CounterVec
	TransactionsCompleted *prometheus.CounterVec
	TransactionsCancelled *prometheus.CounterVec
	TransactionsFailed    *prometheus.CounterVec
	TransactionAmount     *prometheus.HistogramVec

	// Balance metrics
	BalanceMutations    *prometheus.CounterVec
	MutationRetries     prometheus.Counter
	InsufficientBalance prometheus.Counter

	// Vault transfer metrics
	VaultTransfersCreated   prometheus.Counter
	VaultTransfersApproved  prometheus.Counter
	VaultTransfersCompleted prometheus.Counter
	VaultTransfersRejected  prometheus.Counter

	// Validation metrics
	ValidationFailures *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBErrors *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		TransactionsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fxledger_transactions_created_total",
			Help: "Total number of transactions created",
		}, []string{"type"}),
		TransactionsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fxledger_transactions_completed_total",
			Help: "Total number of transactions completed",
		}, []string{"type"}),
		TransactionsCancelled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fxledger_transactions_cancelled_total",
			Help: "Total number of transactions cancelled",
		}, []string{"type"}),
		TransactionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fxledger_transactions_failed_total",
			Help: "Total number of transactions marked failed",
		}, []string{"type"}),
		TransactionAmount: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fxledger_transaction_amount",
			Help:    "Transaction amounts",
			Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
		}, []string{"type", "currency"}),

		BalanceMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fxledger_balance_mutations_total",
			Help: "Total number of balance mutations by change type",
		}, []string{"change_type"}),
		MutationRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_balance_mutation_retries_total",
			Help: "Total number of retried balance mutations",
		}),
		InsufficientBalance: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_insufficient_balance_total",
			Help: "Total number of mutations rejected for insufficient balance",
		}),

		VaultTransfersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_vault_transfers_created_total",
			Help: "Total number of vault transfers initiated",
		}),
		VaultTransfersApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_vault_transfers_approved_total",
			Help: "Total number of vault transfers approved",
		}),
		VaultTransfersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_vault_transfers_completed_total",
			Help: "Total number of vault transfers completed",
		}),
		VaultTransfersRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_vault_transfers_rejected_total",
			Help: "Total number of vault transfers rejected",
		}),

		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fxledger_validation_failures_total",
			Help: "Validation pipeline failures by error code",
		}, []string{"code"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fxledger_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fxledger_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		DBErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fxledger_db_errors_total",
			Help: "Database errors by operation",
		}, []string{"operation"}),
	}
}
