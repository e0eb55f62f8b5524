package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// BalanceUseCase is the single writer of balance rows. Every mutation goes
// through one store transaction that locks the row, re-validates against the
// fresh state, writes the new value and appends a history entry.
type BalanceUseCase struct {
	txManager   TransactionManager
	balanceRepo BalanceRepository
	historyRepo HistoryRepository
	retrier     Retrier
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

func NewBalanceUseCase(
	txManager TransactionManager,
	balanceRepo BalanceRepository,
	historyRepo HistoryRepository,
	retrier Retrier,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *BalanceUseCase {
	return &BalanceUseCase{
		txManager:   txManager,
		balanceRepo: balanceRepo,
		historyRepo: historyRepo,
		retrier:     retrier,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// MutationInput describes a single signed balance change.
type MutationInput struct {
	HolderID      string
	HolderType    domain.HolderType
	Currency      string
	Delta         decimal.Decimal
	ChangeType    domain.ChangeType
	ReferenceID   string
	ReferenceType string
	PerformedBy   string
	Notes         string
}

// MutationResult reports the outcome of a mutation, including any soft
// threshold crossings.
type MutationResult struct {
	Balance  *domain.Balance
	Warnings []domain.ThresholdWarning
}

// Get returns the current balance row for one (holder, currency) pair.
func (uc *BalanceUseCase) Get(ctx context.Context, holderID, currency string) (*domain.Balance, error) {
	return uc.balanceRepo.Get(ctx, holderID, currency)
}

// ListByHolder returns all currency balances for one holder.
func (uc *BalanceUseCase) ListByHolder(ctx context.Context, holderID string) ([]*domain.Balance, error) {
	return uc.balanceRepo.ListByHolder(ctx, holderID)
}

// History returns the mutation trail for one (holder, currency) pair, newest
// first.
func (uc *BalanceUseCase) History(ctx context.Context, holderID, currency string, limit, offset int) ([]*domain.HistoryEntry, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.historyRepo.ListByHolder(ctx, holderID, currency, limit, offset)
}

// Apply applies a single signed delta to one balance row. The whole unit is
// retried on transient store conflicts.
func (uc *BalanceUseCase) Apply(ctx context.Context, input MutationInput) (*MutationResult, error) {
	if input.Delta.IsZero() {
		return nil, domain.ErrInvalidAmount
	}

	var result *MutationResult
	err := uc.retrier.Retry(ctx, func() error {
		var err error
		result, err = uc.applyOnce(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.BalanceMutations.WithLabelValues(string(input.ChangeType)).Inc()
	return result, nil
}

func (uc *BalanceUseCase) applyOnce(ctx context.Context, input MutationInput) (*MutationResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	balance, err := uc.balanceRepo.GetForUpdate(txCtx, tx, input.HolderID, input.Currency)
	if err != nil {
		return nil, err
	}

	result, err := uc.mutateLocked(txCtx, tx, balance, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return result, nil
}

// ApplyPair applies two deltas in one store transaction. Rows are locked in
// lexicographic holder order so two concurrent pairs over the same rows can
// never deadlock. Either both legs apply or neither does.
func (uc *BalanceUseCase) ApplyPair(ctx context.Context, first, second MutationInput) (*MutationResult, *MutationResult, error) {
	if first.Delta.IsZero() || second.Delta.IsZero() {
		return nil, nil, domain.ErrInvalidAmount
	}

	var firstResult, secondResult *MutationResult
	err := uc.retrier.Retry(ctx, func() error {
		var err error
		firstResult, secondResult, err = uc.applyPairOnce(ctx, first, second)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	uc.metrics.BalanceMutations.WithLabelValues(string(first.ChangeType)).Inc()
	uc.metrics.BalanceMutations.WithLabelValues(string(second.ChangeType)).Inc()
	return firstResult, secondResult, nil
}

func (uc *BalanceUseCase) applyPairOnce(ctx context.Context, first, second MutationInput) (*MutationResult, *MutationResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	firstResult, secondResult, err := uc.ApplyPairWithinTx(txCtx, tx, first, second)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, nil, err
	}

	return firstResult, secondResult, nil
}

// ApplyWithinTx applies one delta under a caller-owned store transaction.
// Callers applying several deltas must order calls lexicographically by
// (holder, currency) themselves, or use ApplyPairWithinTx.
func (uc *BalanceUseCase) ApplyWithinTx(ctx context.Context, tx Transaction, input MutationInput) (*MutationResult, error) {
	balance, err := uc.balanceRepo.GetForUpdate(ctx, tx, input.HolderID, input.Currency)
	if err != nil {
		return nil, err
	}
	return uc.mutateLocked(ctx, tx, balance, input)
}

// ApplyPairWithinTx applies two deltas under a caller-owned store
// transaction, locking rows in lexicographic (holder, currency) order.
func (uc *BalanceUseCase) ApplyPairWithinTx(ctx context.Context, tx Transaction, first, second MutationInput) (*MutationResult, *MutationResult, error) {
	order := []int{0, 1}
	inputs := [2]MutationInput{first, second}
	sort.Slice(order, func(i, j int) bool {
		a, b := inputs[order[i]], inputs[order[j]]
		if a.HolderID != b.HolderID {
			return a.HolderID < b.HolderID
		}
		return a.Currency < b.Currency
	})

	var results [2]*MutationResult
	for _, idx := range order {
		res, err := uc.ApplyWithinTx(ctx, tx, inputs[idx])
		if err != nil {
			return nil, nil, err
		}
		results[idx] = res
	}

	return results[0], results[1], nil
}

// mutateLocked applies one delta to a row already locked under tx.
func (uc *BalanceUseCase) mutateLocked(ctx context.Context, tx Transaction, balance *domain.Balance, input MutationInput) (*MutationResult, error) {
	if err := balance.ValidateDelta(input.Delta); err != nil {
		if err == domain.ErrInsufficientBalance {
			uc.metrics.InsufficientBalance.Inc()
		}
		return nil, err
	}

	now := time.Now().UTC()
	before := balance.Balance
	after := before.Add(input.Delta)
	warnings := balance.ThresholdWarnings(after)

	balance.Balance = after
	balance.Version++
	balance.LastUpdatedAt = now

	if err := uc.balanceRepo.Update(ctx, tx, balance); err != nil {
		return nil, err
	}

	entry := &domain.HistoryEntry{
		ID:            uc.idGen.Generate(),
		HolderID:      balance.HolderID,
		HolderType:    balance.HolderType,
		Currency:      balance.Currency,
		ChangeType:    input.ChangeType,
		Amount:        input.Delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		ReferenceID:   input.ReferenceID,
		ReferenceType: input.ReferenceType,
		PerformedBy:   input.PerformedBy,
		Notes:         input.Notes,
		CreatedAt:     now,
	}
	if err := uc.historyRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	return &MutationResult{Balance: balance, Warnings: warnings}, nil
}

// Reserve moves amount from available into reserved without changing the
// total balance.
func (uc *BalanceUseCase) Reserve(ctx context.Context, holderID, currency string, amount decimal.Decimal, performedBy string) (*domain.Balance, error) {
	return uc.adjustReserved(ctx, holderID, currency, amount, performedBy, "reserve",
		func(b *domain.Balance) error { return b.ValidateReserve(amount) })
}

// Release moves amount from reserved back into available.
func (uc *BalanceUseCase) Release(ctx context.Context, holderID, currency string, amount decimal.Decimal, performedBy string) (*domain.Balance, error) {
	return uc.adjustReserved(ctx, holderID, currency, amount.Neg(), performedBy, "release",
		func(b *domain.Balance) error { return b.ValidateRelease(amount) })
}

func (uc *BalanceUseCase) adjustReserved(
	ctx context.Context,
	holderID, currency string,
	delta decimal.Decimal,
	performedBy, op string,
	validate func(*domain.Balance) error,
) (*domain.Balance, error) {
	var balance *domain.Balance
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		balance, err = uc.balanceRepo.GetForUpdate(txCtx, tx, holderID, currency)
		if err != nil {
			return err
		}
		if err := validate(balance); err != nil {
			return err
		}

		balance.ReservedBalance = balance.ReservedBalance.Add(delta)
		balance.Version++
		balance.LastUpdatedAt = time.Now().UTC()

		if err := uc.balanceRepo.Update(txCtx, tx, balance); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.BalanceMutations.WithLabelValues(op).Inc()
	return balance, nil
}

// CommitReserved debits a previously reserved amount: the reservation and the
// balance shrink together, so the available balance is untouched.
func (uc *BalanceUseCase) CommitReserved(ctx context.Context, input MutationInput) (*MutationResult, error) {
	amount := input.Delta.Abs()
	if amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}

	var result *MutationResult
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		balance, err := uc.balanceRepo.GetForUpdate(txCtx, tx, input.HolderID, input.Currency)
		if err != nil {
			return err
		}
		if balance.ReservedBalance.LessThan(amount) {
			return domain.ErrReservedReleaseAmount
		}

		balance.ReservedBalance = balance.ReservedBalance.Sub(amount)
		debit := input
		debit.Delta = amount.Neg()
		result, err = uc.mutateLocked(txCtx, tx, balance, debit)
		if err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.BalanceMutations.WithLabelValues(string(input.ChangeType)).Inc()
	return result, nil
}

// Reconcile overwrites the stored balance with a counted actual value and
// records the difference as a reconciliation entry. A zero difference still
// writes a history entry so the count itself is on record.
func (uc *BalanceUseCase) Reconcile(ctx context.Context, holderID, currency string, actual decimal.Decimal, performedBy, notes string) (*MutationResult, error) {
	if actual.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	var result *MutationResult
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		balance, err := uc.balanceRepo.GetForUpdate(txCtx, tx, holderID, currency)
		if err != nil {
			return err
		}

		diff := actual.Sub(balance.Balance)
		if diff.IsZero() {
			now := time.Now().UTC()
			entry := &domain.HistoryEntry{
				ID:            uc.idGen.Generate(),
				HolderID:      balance.HolderID,
				HolderType:    balance.HolderType,
				Currency:      balance.Currency,
				ChangeType:    domain.ChangeTypeReconciliation,
				Amount:        decimal.Zero,
				BalanceBefore: balance.Balance,
				BalanceAfter:  balance.Balance,
				PerformedBy:   performedBy,
				Notes:         notes,
				CreatedAt:     now,
			}
			if err := uc.historyRepo.Create(txCtx, tx, entry); err != nil {
				return err
			}
			result = &MutationResult{Balance: balance}
			return tx.Commit(txCtx)
		}

		result, err = uc.mutateLocked(txCtx, tx, balance, MutationInput{
			HolderID:    holderID,
			HolderType:  balance.HolderType,
			Currency:    currency,
			Delta:       diff,
			ChangeType:  domain.ChangeTypeReconciliation,
			PerformedBy: performedBy,
			Notes:       notes,
		})
		if err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.BalanceMutations.WithLabelValues(string(domain.ChangeTypeReconciliation)).Inc()
	return result, nil
}
