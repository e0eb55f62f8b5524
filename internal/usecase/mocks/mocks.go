package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// MockTransaction is a no-op store transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	Committed  bool
	RolledBack bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	m.RolledBack = true
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockRetrier runs the operation once, or retries per RetryFunc.
type MockRetrier struct {
	RetryFunc func(ctx context.Context, operation func() error) error
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, operation)
	}
	return operation()
}

// MockIDGenerator generates deterministic sequential IDs.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int
}

func (m *MockIDGenerator) Generate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("id-%d", m.next)
}

func balanceKey(holderID, currency string) string {
	return holderID + "/" + currency
}

// MockBalanceRepository is an in-memory BalanceRepository.
type MockBalanceRepository struct {
	mu       sync.RWMutex
	balances map[string]*domain.Balance

	GetFunc          func(ctx context.Context, holderID, currency string) (*domain.Balance, error)
	GetForUpdateFunc func(ctx context.Context, tx usecase.Transaction, holderID, currency string) (*domain.Balance, error)
	UpdateFunc       func(ctx context.Context, tx usecase.Transaction, balance *domain.Balance) error

	// LockOrder records the key sequence of GetForUpdate calls.
	LockOrder []string
}

func NewMockBalanceRepository() *MockBalanceRepository {
	return &MockBalanceRepository{balances: make(map[string]*domain.Balance)}
}

// Seed installs a balance row directly.
func (m *MockBalanceRepository) Seed(b *domain.Balance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balanceKey(b.HolderID, b.Currency)] = b
}

func (m *MockBalanceRepository) Create(ctx context.Context, balance *domain.Balance) error {
	m.Seed(balance)
	return nil
}

func (m *MockBalanceRepository) Get(ctx context.Context, holderID, currency string) (*domain.Balance, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, holderID, currency)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.balances[balanceKey(holderID, currency)]; ok {
		return b, nil
	}
	return nil, domain.ErrBalanceNotFound
}

func (m *MockBalanceRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, holderID, currency string) (*domain.Balance, error) {
	m.mu.Lock()
	m.LockOrder = append(m.LockOrder, balanceKey(holderID, currency))
	m.mu.Unlock()
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, tx, holderID, currency)
	}
	return m.Get(ctx, holderID, currency)
}

func (m *MockBalanceRepository) Update(ctx context.Context, tx usecase.Transaction, balance *domain.Balance) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, balance)
	}
	m.Seed(balance)
	return nil
}

func (m *MockBalanceRepository) ListByHolder(ctx context.Context, holderID string) ([]*domain.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Balance
	for _, b := range m.balances {
		if b.HolderID == holderID {
			out = append(out, b)
		}
	}
	return out, nil
}

// MockHistoryRepository is an in-memory HistoryRepository.
type MockHistoryRepository struct {
	mu      sync.RWMutex
	entries []*domain.HistoryEntry

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.HistoryEntry) error
}

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{}
}

func (m *MockHistoryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.HistoryEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockHistoryRepository) ListByHolder(ctx context.Context, holderID, currency string, limit, offset int) ([]*domain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.HistoryEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.HolderID == holderID && e.Currency == currency {
			out = append(out, e)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Entries returns everything recorded so far.
func (m *MockHistoryRepository) Entries() []*domain.HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.HistoryEntry(nil), m.entries...)
}

// MockTransactionRepository is an in-memory TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction

	CreateFunc     func(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error
	NextNumberFunc func(ctx context.Context, tx usecase.Transaction, prefix string, date time.Time) (string, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{transactions: make(map[string]*domain.Transaction)}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.transactions[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
	return nil
}

func (m *MockTransactionRepository) NextNumber(ctx context.Context, tx usecase.Transaction, prefix string, date time.Time) (string, error) {
	if m.NextNumberFunc != nil {
		return m.NextNumberFunc(ctx, tx, prefix, date)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	datePrefix := domain.NumberDatePrefix(prefix, date)
	max := 0
	for _, t := range m.transactions {
		if strings.HasPrefix(t.Number, datePrefix) {
			seq, err := domain.SequenceFromNumber(t.Number)
			if err == nil && seq > max {
				max = seq
			}
		}
	}
	return domain.FormatNumber(prefix, date, max+1), nil
}

func (m *MockTransactionRepository) SumCompletedByBranchSince(ctx context.Context, branchID string, since time.Time) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range m.transactions {
		if t.BranchID == branchID && t.Status == domain.StatusCompleted && t.CompletedAt != nil && t.CompletedAt.After(since) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (m *MockTransactionRepository) CountCompletedExchangesByCustomerSince(ctx context.Context, customerID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, t := range m.transactions {
		if t.CustomerID == customerID && t.Type == domain.TransactionTypeExchange &&
			t.Status == domain.StatusCompleted && t.CompletedAt != nil && t.CompletedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockTransactionRepository) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.transactions {
		if t.ReferenceNumber == reference {
			return t, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) FindSimilarSince(ctx context.Context, branchID string, amount decimal.Decimal, currency string, since time.Time) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.transactions {
		if t.BranchID == branchID && t.Currency == currency && t.Amount.Equal(amount) &&
			t.Status != domain.StatusCancelled && t.CreatedAt.After(since) {
			return t, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transaction
	for _, t := range m.transactions {
		if t.BranchID == branchID {
			out = append(out, t)
		}
	}
	return out, nil
}

// MockVaultTransferRepository is an in-memory VaultTransferRepository.
type MockVaultTransferRepository struct {
	mu        sync.RWMutex
	transfers map[string]*domain.VaultTransfer
}

func NewMockVaultTransferRepository() *MockVaultTransferRepository {
	return &MockVaultTransferRepository{transfers: make(map[string]*domain.VaultTransfer)}
}

func (m *MockVaultTransferRepository) Create(ctx context.Context, tx usecase.Transaction, vt *domain.VaultTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[vt.ID] = vt
	return nil
}

func (m *MockVaultTransferRepository) GetByID(ctx context.Context, id string) (*domain.VaultTransfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if vt, ok := m.transfers[id]; ok {
		return vt, nil
	}
	return nil, domain.ErrVaultTransferNotFound
}

func (m *MockVaultTransferRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.VaultTransfer, error) {
	return m.GetByID(ctx, id)
}

func (m *MockVaultTransferRepository) Update(ctx context.Context, tx usecase.Transaction, vt *domain.VaultTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[vt.ID] = vt
	return nil
}

func (m *MockVaultTransferRepository) NextNumber(ctx context.Context, tx usecase.Transaction, date time.Time) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	datePrefix := domain.NumberDatePrefix(domain.VaultTransferNumberPrefix, date)
	max := 0
	for _, vt := range m.transfers {
		if strings.HasPrefix(vt.Number, datePrefix) {
			seq, err := domain.SequenceFromNumber(vt.Number)
			if err == nil && seq > max {
				max = seq
			}
		}
	}
	return domain.FormatNumber(domain.VaultTransferNumberPrefix, date, max+1), nil
}

func (m *MockVaultTransferRepository) List(ctx context.Context, status domain.VaultTransferStatus, limit, offset int) ([]*domain.VaultTransfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.VaultTransfer
	for _, vt := range m.transfers {
		if status == "" || vt.Status == status {
			out = append(out, vt)
		}
	}
	return out, nil
}

// MockDirectory answers entity-validity checks; everything is active unless
// listed in Inactive.
type MockDirectory struct {
	mu       sync.RWMutex
	Inactive map[string]bool
}

func NewMockDirectory() *MockDirectory {
	return &MockDirectory{Inactive: make(map[string]bool)}
}

// Deactivate marks an entity inactive by ID or currency code.
func (m *MockDirectory) Deactivate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inactive[id] = true
}

func (m *MockDirectory) active(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.Inactive[id], nil
}

func (m *MockDirectory) BranchActive(ctx context.Context, branchID string) (bool, error) {
	return m.active(branchID)
}

func (m *MockDirectory) VaultActive(ctx context.Context, vaultID string) (bool, error) {
	return m.active(vaultID)
}

func (m *MockDirectory) CurrencyActive(ctx context.Context, currency string) (bool, error) {
	return m.active(currency)
}

func (m *MockDirectory) CustomerActive(ctx context.Context, customerID string) (bool, error) {
	return m.active(customerID)
}

// MockRateSource serves rates from a fixed table keyed by "FROM/TO".
type MockRateSource struct {
	mu    sync.RWMutex
	rates map[string]*domain.Rate

	LatestFunc func(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error)
}

func NewMockRateSource() *MockRateSource {
	return &MockRateSource{rates: make(map[string]*domain.Rate)}
}

// SetRate installs a rate for a pair.
func (m *MockRateSource) SetRate(r *domain.Rate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[r.FromCurrency+"/"+r.ToCurrency] = r
}

func (m *MockRateSource) Latest(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx, fromCurrency, toCurrency)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rates[fromCurrency+"/"+toCurrency]; ok {
		return r, nil
	}
	return nil, domain.ErrRateNotFound
}
