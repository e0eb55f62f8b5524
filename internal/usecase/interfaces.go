package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
)

// BalanceRepository defines data access for balance rows.
type BalanceRepository interface {
	Create(ctx context.Context, balance *domain.Balance) error
	Get(ctx context.Context, holderID, currency string) (*domain.Balance, error)
	// GetForUpdate locks the row for the duration of tx. Callers locking
	// more than one row must acquire them in lexicographic holder order.
	GetForUpdate(ctx context.Context, tx Transaction, holderID, currency string) (*domain.Balance, error)
	Update(ctx context.Context, tx Transaction, balance *domain.Balance) error
	ListByHolder(ctx context.Context, holderID string) ([]*domain.Balance, error)
}

// HistoryRepository defines append-only access to balance history.
type HistoryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.HistoryEntry) error
	ListByHolder(ctx context.Context, holderID, currency string, limit, offset int) ([]*domain.HistoryEntry, error)
}

// TransactionRepository defines data access for transactions of all four
// kinds, plus the aggregate queries the validation pipeline needs.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, t *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	Update(ctx context.Context, tx Transaction, t *domain.Transaction) error
	// NextNumber computes the next date-scoped sequence number inside tx;
	// the surrounding transaction is the serialization point.
	NextNumber(ctx context.Context, tx Transaction, prefix string, date time.Time) (string, error)
	SumCompletedByBranchSince(ctx context.Context, branchID string, since time.Time) (decimal.Decimal, error)
	CountCompletedExchangesByCustomerSince(ctx context.Context, customerID string, since time.Time) (int, error)
	FindByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	FindSimilarSince(ctx context.Context, branchID string, amount decimal.Decimal, currency string, since time.Time) (*domain.Transaction, error)
	ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*domain.Transaction, error)
}

// VaultTransferRepository defines data access for vault transfers.
type VaultTransferRepository interface {
	Create(ctx context.Context, tx Transaction, vt *domain.VaultTransfer) error
	GetByID(ctx context.Context, id string) (*domain.VaultTransfer, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.VaultTransfer, error)
	Update(ctx context.Context, tx Transaction, vt *domain.VaultTransfer) error
	NextNumber(ctx context.Context, tx Transaction, date time.Time) (string, error)
	List(ctx context.Context, status domain.VaultTransferStatus, limit, offset int) ([]*domain.VaultTransfer, error)
}

// RateSource supplies the latest exchange rate for a currency pair.
type RateSource interface {
	Latest(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error)
}

// Directory answers entity-validity questions about collaborator-owned
// entities. The core only needs to know whether they exist and are active.
type Directory interface {
	BranchActive(ctx context.Context, branchID string) (bool, error)
	VaultActive(ctx context.Context, vaultID string) (bool, error)
	CurrencyActive(ctx context.Context, currency string) (bool, error)
	CustomerActive(ctx context.Context, customerID string) (bool, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an idempotent unit of work on transient store conflicts.
// It wraps whole ledger operations, never individual statements.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique entity IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage for the HTTP layer.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
