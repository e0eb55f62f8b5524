package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType discriminates the four transaction kinds sharing one
// entity family.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeExchange TransactionType = "exchange"
	TransactionTypeTransfer TransactionType = "transfer"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusInTransit TransactionStatus = "in_transit"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
	StatusFailed    TransactionStatus = "failed"
)

// transactionTransitions is the single source of truth for legal status
// moves. Completed and cancelled are terminal; failed may retry to pending.
var transactionTransitions = map[TransactionStatus]map[TransactionStatus]struct{}{
	StatusPending: {
		StatusInTransit: {},
		StatusCompleted: {},
		StatusCancelled: {},
		StatusFailed:    {},
	},
	StatusInTransit: {
		StatusCompleted: {},
		StatusFailed:    {},
	},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusFailed: {
		StatusPending: {},
	},
}

// CanTransition reports whether current -> next is a legal status move.
func CanTransition(current, next TransactionStatus) bool {
	nextStates, ok := transactionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// MinCancellationReasonLength gates cancel calls; a bare "x" is not a reason.
const MinCancellationReasonLength = 5

// TransferDirection identifies a transfer transaction subtype.
type TransferDirection string

const (
	TransferBranchToBranch TransferDirection = "branch_to_branch"
	TransferVaultToBranch  TransferDirection = "vault_to_branch"
	TransferBranchToVault  TransferDirection = "branch_to_vault"
)

// IncomeDetails carries the income-specific payload.
type IncomeDetails struct {
	Category string
	Source   string
}

// ExpenseDetails carries the expense-specific payload including its
// approval workflow state.
type ExpenseDetails struct {
	Category         string
	Payee            string
	ApprovalRequired bool
	ApprovedBy       string
	ApprovedAt       *time.Time
}

// IsApproved reports whether the expense may be completed.
func (d *ExpenseDetails) IsApproved() bool {
	return !d.ApprovalRequired || (d.ApprovedBy != "" && d.ApprovedAt != nil)
}

// ExchangeDetails carries the exchange payload. RateUsed is a snapshot taken
// at execution time and is never recomputed from current rates.
type ExchangeDetails struct {
	FromCurrency         string
	ToCurrency           string
	FromAmount           decimal.Decimal
	ToAmount             decimal.Decimal
	RateUsed             decimal.Decimal
	CommissionPercentage decimal.Decimal
	CommissionAmount     decimal.Decimal
}

// TransferDetails carries the branch transfer payload. ToBranchID is set for
// branch destinations; VaultID names the vault counterparty on the vault
// directions, whichever side it sits on.
type TransferDetails struct {
	FromBranchID string
	ToBranchID   string
	VaultID      string
	Direction    TransferDirection
	ReceivedBy   string
	ReceivedAt   *time.Time
}

// IsReceived reports whether the physical hand-off was confirmed.
func (d *TransferDetails) IsReceived() bool {
	return d.ReceivedBy != "" && d.ReceivedAt != nil
}

// Transaction is the common header of the four transaction kinds. At most
// one of the detail pointers is non-nil, matching Type.
type Transaction struct {
	ID              string
	Number          string
	Type            TransactionType
	Status          TransactionStatus
	Amount          decimal.Decimal
	Currency        string
	BranchID        string
	UserID          string
	CustomerID      string
	ReferenceNumber string
	Notes           string

	Income   *IncomeDetails
	Expense  *ExpenseDetails
	Exchange *ExchangeDetails
	Transfer *TransferDetails

	TransactionAt time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	CancelledBy   string
	CancelReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the invariants common to every transaction kind.
func (t *Transaction) Validate() error {
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if t.Type == TransactionTypeExchange && t.Exchange != nil &&
		t.Exchange.FromCurrency == t.Exchange.ToCurrency {
		return ErrSameCurrency
	}
	return nil
}

// IsTerminal reports whether no further status transition is legal.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusCancelled
}

// transition moves the transaction to next after checking the table.
func (t *Transaction) transition(next TransactionStatus) error {
	if !CanTransition(t.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, t.Status, next)
	}
	t.Status = next
	return nil
}

// Complete marks a pending transaction completed.
func (t *Transaction) Complete(actorID string, at time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: only pending transactions can be completed, got %s",
			ErrInvalidStateTransition, t.Status)
	}
	if t.Type == TransactionTypeExpense && t.Expense != nil && !t.Expense.IsApproved() {
		return ErrApprovalRequired
	}
	if err := t.transition(StatusCompleted); err != nil {
		return err
	}
	t.CompletedAt = &at
	t.UpdatedAt = at
	return nil
}

// Cancel marks a pending transaction cancelled. The reason is mandatory and
// recorded along with the cancelling user.
func (t *Transaction) Cancel(actorID, reason string, at time.Time) error {
	if len(strings.TrimSpace(reason)) < MinCancellationReasonLength {
		return ErrCancellationReasonShort
	}
	if t.Status != StatusPending {
		return fmt.Errorf("%w: only pending transactions can be cancelled, got %s",
			ErrInvalidStateTransition, t.Status)
	}
	if err := t.transition(StatusCancelled); err != nil {
		return err
	}
	t.CancelledAt = &at
	t.CancelledBy = actorID
	t.CancelReason = reason
	t.UpdatedAt = at
	return nil
}

// Fail marks a pending transaction failed, appending the reason to notes.
// It never touches balances: callers apply balance effects only together
// with the completion transition.
func (t *Transaction) Fail(reason string, at time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: only pending transactions can be failed, got %s",
			ErrInvalidStateTransition, t.Status)
	}
	if err := t.transition(StatusFailed); err != nil {
		return err
	}
	if t.Notes != "" {
		t.Notes += "\n"
	}
	t.Notes += "FAILED: " + reason
	t.UpdatedAt = at
	return nil
}

// Retry moves a failed transaction back to pending.
func (t *Transaction) Retry(at time.Time) error {
	if err := t.transition(StatusPending); err != nil {
		return err
	}
	t.UpdatedAt = at
	return nil
}

// Approve records expense approval. Double approval is rejected.
func (t *Transaction) Approve(approverID string, at time.Time) error {
	if t.Type != TransactionTypeExpense || t.Expense == nil {
		return fmt.Errorf("%w: not an expense transaction", ErrInvalidStateTransition)
	}
	if !t.Expense.ApprovalRequired {
		return ErrApprovalNotRequired
	}
	if t.Expense.ApprovedBy != "" {
		return ErrAlreadyApproved
	}
	t.Expense.ApprovedBy = approverID
	t.Expense.ApprovedAt = &at
	t.UpdatedAt = at
	return nil
}

// MarkReceived confirms the physical hand-off of a completed transfer.
// This is secondary to the ledger movement: funds have already moved when
// the transfer completed.
func (t *Transaction) MarkReceived(receiverID string, at time.Time) error {
	if t.Type != TransactionTypeTransfer || t.Transfer == nil {
		return fmt.Errorf("%w: not a transfer transaction", ErrInvalidStateTransition)
	}
	if t.Status != StatusCompleted {
		return ErrNotCompleted
	}
	if t.Transfer.IsReceived() {
		return ErrAlreadyReceived
	}
	t.Transfer.ReceivedBy = receiverID
	t.Transfer.ReceivedAt = &at
	t.UpdatedAt = at
	return nil
}
