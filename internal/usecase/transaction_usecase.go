package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// TransactionUseCase orchestrates the lifecycle of the four transaction
// kinds. Creation persists a pending record only; balances move exactly once,
// inside the same store transaction as the completion status write.
type TransactionUseCase struct {
	txManager       TransactionManager
	transactionRepo TransactionRepository
	balances        *BalanceUseCase
	validator       *ValidationService
	rates           RateSource
	retrier         Retrier
	idGen           IDGenerator
	metrics         *metrics.Metrics
}

func NewTransactionUseCase(
	txManager TransactionManager,
	transactionRepo TransactionRepository,
	balances *BalanceUseCase,
	validator *ValidationService,
	rates RateSource,
	retrier Retrier,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *TransactionUseCase {
	return &TransactionUseCase{
		txManager:       txManager,
		transactionRepo: transactionRepo,
		balances:        balances,
		validator:       validator,
		rates:           rates,
		retrier:         retrier,
		idGen:           idGen,
		metrics:         metrics,
	}
}

// CreateIncomeInput carries the payload for a new income transaction.
type CreateIncomeInput struct {
	BranchID        string
	UserID          string
	CustomerID      string
	Amount          decimal.Decimal
	Currency        string
	Category        string
	Source          string
	ReferenceNumber string
	Notes           string
	TransactionAt   *time.Time
}

// CreateExpenseInput carries the payload for a new expense transaction.
type CreateExpenseInput struct {
	BranchID         string
	UserID           string
	Amount           decimal.Decimal
	Currency         string
	Category         string
	Payee            string
	ApprovalRequired bool
	ReferenceNumber  string
	Notes            string
	TransactionAt    *time.Time
}

// CreateExchangeInput carries the payload for a new exchange transaction.
// The rate is looked up and snapshotted at creation, never at completion.
type CreateExchangeInput struct {
	BranchID             string
	UserID               string
	CustomerID           string
	FromCurrency         string
	ToCurrency           string
	FromAmount           decimal.Decimal
	CommissionPercentage decimal.Decimal
	ReferenceNumber      string
	Notes                string
	TransactionAt        *time.Time
}

// CreateTransferInput carries the payload for a new transfer transaction.
// ToBranchID names a branch destination, VaultID the vault counterparty on
// either vault direction.
type CreateTransferInput struct {
	FromBranchID    string
	ToBranchID      string
	VaultID         string
	Direction       domain.TransferDirection
	UserID          string
	Amount          decimal.Decimal
	Currency        string
	ReferenceNumber string
	Notes           string
	TransactionAt   *time.Time
}

func (uc *TransactionUseCase) commonChecks(amount decimal.Decimal, currency, notes, reference string) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	if err := domain.ValidateCurrencyCode(currency); err != nil {
		return err
	}
	if err := domain.ValidateNotes(notes); err != nil {
		return err
	}
	return domain.ValidateReference(reference)
}

// CreateIncome records a pending income transaction.
func (uc *TransactionUseCase) CreateIncome(ctx context.Context, input CreateIncomeInput) (*domain.Transaction, error) {
	if err := uc.commonChecks(input.Amount, input.Currency, input.Notes, input.ReferenceNumber); err != nil {
		return nil, err
	}

	err := uc.validator.ValidateTransaction(ctx, ValidateTransactionInput{
		Type:       domain.TransactionTypeIncome,
		BranchID:   input.BranchID,
		CustomerID: input.CustomerID,
		Currency:   input.Currency,
		Amount:     input.Amount,
		Reference:  input.ReferenceNumber,
	})
	if err != nil {
		return nil, err
	}

	txn := uc.newTransaction(domain.TransactionTypeIncome, input.BranchID, input.UserID,
		input.Amount, input.Currency, input.ReferenceNumber, input.Notes, input.TransactionAt)
	txn.CustomerID = input.CustomerID
	txn.Income = &domain.IncomeDetails{
		Category: input.Category,
		Source:   input.Source,
	}

	return uc.persistNew(ctx, txn)
}

// CreateExpense records a pending expense transaction. Expenses flagged for
// approval cannot complete until approved.
func (uc *TransactionUseCase) CreateExpense(ctx context.Context, input CreateExpenseInput) (*domain.Transaction, error) {
	if err := uc.commonChecks(input.Amount, input.Currency, input.Notes, input.ReferenceNumber); err != nil {
		return nil, err
	}

	err := uc.validator.ValidateTransaction(ctx, ValidateTransactionInput{
		Type:          domain.TransactionTypeExpense,
		BranchID:      input.BranchID,
		Currency:      input.Currency,
		Amount:        input.Amount,
		Reference:     input.ReferenceNumber,
		DebitCurrency: input.Currency,
		DebitAmount:   input.Amount,
	})
	if err != nil {
		return nil, err
	}

	txn := uc.newTransaction(domain.TransactionTypeExpense, input.BranchID, input.UserID,
		input.Amount, input.Currency, input.ReferenceNumber, input.Notes, input.TransactionAt)
	txn.Expense = &domain.ExpenseDetails{
		Category:         input.Category,
		Payee:            input.Payee,
		ApprovalRequired: input.ApprovalRequired,
	}

	return uc.persistNew(ctx, txn)
}

// CreateExchange records a pending exchange. The current rate is snapshotted
// into the transaction and all later math uses the snapshot.
func (uc *TransactionUseCase) CreateExchange(ctx context.Context, input CreateExchangeInput) (*domain.Transaction, error) {
	if err := uc.commonChecks(input.FromAmount, input.FromCurrency, input.Notes, input.ReferenceNumber); err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrencyCode(input.ToCurrency); err != nil {
		return nil, err
	}
	if input.FromCurrency == input.ToCurrency {
		return nil, domain.ErrSameCurrency
	}
	if input.CommissionPercentage.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	rate, err := uc.rates.Latest(ctx, input.FromCurrency, input.ToCurrency)
	if err != nil {
		return nil, err
	}

	result := domain.CalculateExchange(input.FromAmount, rate.Rate, input.CommissionPercentage, domain.CurrencyDecimalPlaces)

	err = uc.validator.ValidateTransaction(ctx, ValidateTransactionInput{
		Type:          domain.TransactionTypeExchange,
		BranchID:      input.BranchID,
		CustomerID:    input.CustomerID,
		Currency:      input.FromCurrency,
		Amount:        input.FromAmount,
		ToCurrency:    input.ToCurrency,
		Reference:     input.ReferenceNumber,
		DebitCurrency: input.FromCurrency,
		DebitAmount:   result.NetFromAmount,
	})
	if err != nil {
		return nil, err
	}

	txn := uc.newTransaction(domain.TransactionTypeExchange, input.BranchID, input.UserID,
		input.FromAmount, input.FromCurrency, input.ReferenceNumber, input.Notes, input.TransactionAt)
	txn.CustomerID = input.CustomerID
	txn.Exchange = &domain.ExchangeDetails{
		FromCurrency:         input.FromCurrency,
		ToCurrency:           input.ToCurrency,
		FromAmount:           input.FromAmount,
		ToAmount:             result.ToAmount,
		RateUsed:             rate.Rate,
		CommissionPercentage: input.CommissionPercentage,
		CommissionAmount:     result.CommissionAmount,
	}

	return uc.persistNew(ctx, txn)
}

// CreateTransfer records a pending transfer between a branch and another
// branch or a vault.
func (uc *TransactionUseCase) CreateTransfer(ctx context.Context, input CreateTransferInput) (*domain.Transaction, error) {
	if err := uc.commonChecks(input.Amount, input.Currency, input.Notes, input.ReferenceNumber); err != nil {
		return nil, err
	}

	switch input.Direction {
	case domain.TransferBranchToBranch:
		if input.ToBranchID == "" || input.ToBranchID == input.FromBranchID {
			return nil, domain.ErrInvalidDestination
		}
	case domain.TransferBranchToVault, domain.TransferVaultToBranch:
		if input.VaultID == "" {
			return nil, domain.ErrInvalidDestination
		}
	default:
		return nil, domain.ErrInvalidDestination
	}

	vInput := ValidateTransactionInput{
		Type:       domain.TransactionTypeTransfer,
		BranchID:   input.FromBranchID,
		Currency:   input.Currency,
		Amount:     input.Amount,
		Reference:  input.ReferenceNumber,
		ToBranchID: input.ToBranchID,
		VaultID:    input.VaultID,
	}
	// Vault-to-branch credits the branch; the vault side is checked under
	// lock at completion.
	if input.Direction != domain.TransferVaultToBranch {
		vInput.DebitCurrency = input.Currency
		vInput.DebitAmount = input.Amount
	}
	if err := uc.validator.ValidateTransaction(ctx, vInput); err != nil {
		return nil, err
	}

	txn := uc.newTransaction(domain.TransactionTypeTransfer, input.FromBranchID, input.UserID,
		input.Amount, input.Currency, input.ReferenceNumber, input.Notes, input.TransactionAt)
	txn.Transfer = &domain.TransferDetails{
		FromBranchID: input.FromBranchID,
		ToBranchID:   input.ToBranchID,
		VaultID:      input.VaultID,
		Direction:    input.Direction,
	}

	return uc.persistNew(ctx, txn)
}

func (uc *TransactionUseCase) newTransaction(
	t domain.TransactionType,
	branchID, userID string,
	amount decimal.Decimal,
	currency, reference, notes string,
	at *time.Time,
) *domain.Transaction {
	now := time.Now().UTC()
	transactionAt := now
	if at != nil {
		transactionAt = at.UTC()
	}
	return &domain.Transaction{
		ID:              uc.idGen.Generate(),
		Type:            t,
		Status:          domain.StatusPending,
		Amount:          amount,
		Currency:        currency,
		BranchID:        branchID,
		UserID:          userID,
		ReferenceNumber: reference,
		Notes:           notes,
		TransactionAt:   transactionAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// persistNew assigns the next date-scoped number and writes the pending row
// in one store transaction, so numbers stay gapless under concurrency.
func (uc *TransactionUseCase) persistNew(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		number, err := uc.transactionRepo.NextNumber(txCtx, tx, domain.TransactionNumberPrefix, txn.TransactionAt)
		if err != nil {
			return err
		}
		txn.Number = number

		if err := uc.transactionRepo.Create(txCtx, tx, txn); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.TransactionsCreated.WithLabelValues(string(txn.Type)).Inc()
	amount, _ := txn.Amount.Float64()
	uc.metrics.TransactionAmount.WithLabelValues(string(txn.Type), txn.Currency).Observe(amount)
	return txn, nil
}

// Complete finishes a pending transaction. The status write and every
// balance leg commit or roll back together.
func (uc *TransactionUseCase) Complete(ctx context.Context, id, actorID string) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		txn, err = uc.transactionRepo.GetByIDForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := txn.Complete(actorID, now); err != nil {
			return err
		}

		if err := uc.applyBalanceEffects(txCtx, tx, txn, actorID); err != nil {
			return err
		}

		if err := uc.transactionRepo.Update(txCtx, tx, txn); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.TransactionsCompleted.WithLabelValues(string(txn.Type)).Inc()
	return txn, nil
}

// applyBalanceEffects moves the funds a completed transaction implies.
func (uc *TransactionUseCase) applyBalanceEffects(ctx context.Context, tx Transaction, txn *domain.Transaction, actorID string) error {
	base := MutationInput{
		ChangeType:    domain.ChangeTypeTransaction,
		ReferenceID:   txn.ID,
		ReferenceType: string(txn.Type),
		PerformedBy:   actorID,
	}

	switch txn.Type {
	case domain.TransactionTypeIncome:
		in := base
		in.HolderID = txn.BranchID
		in.HolderType = domain.HolderTypeBranch
		in.Currency = txn.Currency
		in.Delta = txn.Amount
		_, err := uc.balances.ApplyWithinTx(ctx, tx, in)
		return err

	case domain.TransactionTypeExpense:
		in := base
		in.HolderID = txn.BranchID
		in.HolderType = domain.HolderTypeBranch
		in.Currency = txn.Currency
		in.Delta = txn.Amount.Neg()
		_, err := uc.balances.ApplyWithinTx(ctx, tx, in)
		return err

	case domain.TransactionTypeExchange:
		if txn.Exchange == nil {
			return fmt.Errorf("%w: exchange details missing", domain.ErrInvalidStateTransition)
		}
		// The source currency leaves in full, converted amount plus
		// commission, and the converted amount arrives in the target
		// currency.
		debit := base
		debit.HolderID = txn.BranchID
		debit.HolderType = domain.HolderTypeBranch
		debit.Currency = txn.Exchange.FromCurrency
		debit.Delta = txn.Exchange.FromAmount.Add(txn.Exchange.CommissionAmount).Neg()

		credit := base
		credit.HolderID = txn.BranchID
		credit.HolderType = domain.HolderTypeBranch
		credit.Currency = txn.Exchange.ToCurrency
		credit.Delta = txn.Exchange.ToAmount

		_, _, err := uc.balances.ApplyPairWithinTx(ctx, tx, debit, credit)
		return err

	case domain.TransactionTypeTransfer:
		if txn.Transfer == nil {
			return fmt.Errorf("%w: transfer details missing", domain.ErrInvalidStateTransition)
		}
		from, to := transferEndpoints(txn.Transfer)

		debit := base
		debit.ChangeType = domain.ChangeTypeTransfer
		debit.HolderID = from.id
		debit.HolderType = from.kind
		debit.Currency = txn.Currency
		debit.Delta = txn.Amount.Neg()

		credit := base
		credit.ChangeType = domain.ChangeTypeTransfer
		credit.HolderID = to.id
		credit.HolderType = to.kind
		credit.Currency = txn.Currency
		credit.Delta = txn.Amount

		_, _, err := uc.balances.ApplyPairWithinTx(ctx, tx, debit, credit)
		return err
	}

	return fmt.Errorf("unknown transaction type %q", txn.Type)
}

type endpoint struct {
	id   string
	kind domain.HolderType
}

func transferEndpoints(d *domain.TransferDetails) (from, to endpoint) {
	switch d.Direction {
	case domain.TransferVaultToBranch:
		return endpoint{d.VaultID, domain.HolderTypeVault}, endpoint{d.FromBranchID, domain.HolderTypeBranch}
	case domain.TransferBranchToVault:
		return endpoint{d.FromBranchID, domain.HolderTypeBranch}, endpoint{d.VaultID, domain.HolderTypeVault}
	default:
		return endpoint{d.FromBranchID, domain.HolderTypeBranch}, endpoint{d.ToBranchID, domain.HolderTypeBranch}
	}
}

// Cancel cancels a pending transaction. No balances have moved yet, so there
// is nothing to reverse.
func (uc *TransactionUseCase) Cancel(ctx context.Context, id, actorID, reason string) (*domain.Transaction, error) {
	txn, err := uc.updateStatus(ctx, id, func(t *domain.Transaction, now time.Time) error {
		return t.Cancel(actorID, reason, now)
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.TransactionsCancelled.WithLabelValues(string(txn.Type)).Inc()
	return txn, nil
}

// Fail marks a pending transaction failed, recording the reason.
func (uc *TransactionUseCase) Fail(ctx context.Context, id, reason string) (*domain.Transaction, error) {
	txn, err := uc.updateStatus(ctx, id, func(t *domain.Transaction, now time.Time) error {
		return t.Fail(reason, now)
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.TransactionsFailed.WithLabelValues(string(txn.Type)).Inc()
	return txn, nil
}

// Retry moves a failed transaction back to pending.
func (uc *TransactionUseCase) Retry(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.updateStatus(ctx, id, func(t *domain.Transaction, now time.Time) error {
		return t.Retry(now)
	})
}

// ApproveExpense records approval on an expense awaiting it.
func (uc *TransactionUseCase) ApproveExpense(ctx context.Context, id, approverID string) (*domain.Transaction, error) {
	return uc.updateStatus(ctx, id, func(t *domain.Transaction, now time.Time) error {
		return t.Approve(approverID, now)
	})
}

// MarkReceived confirms the physical hand-off of a completed transfer.
func (uc *TransactionUseCase) MarkReceived(ctx context.Context, id, receiverID string) (*domain.Transaction, error) {
	return uc.updateStatus(ctx, id, func(t *domain.Transaction, now time.Time) error {
		return t.MarkReceived(receiverID, now)
	})
}

func (uc *TransactionUseCase) updateStatus(ctx context.Context, id string, mutate func(*domain.Transaction, time.Time) error) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		txn, err = uc.transactionRepo.GetByIDForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}

		if err := mutate(txn, time.Now().UTC()); err != nil {
			return err
		}

		if err := uc.transactionRepo.Update(txCtx, tx, txn); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Get returns one transaction by ID.
func (uc *TransactionUseCase) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByID(ctx, id)
}

// ListByBranch returns a branch's transactions, newest first.
func (uc *TransactionUseCase) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*domain.Transaction, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.transactionRepo.ListByBranch(ctx, branchID, limit, offset)
}
