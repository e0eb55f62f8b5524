package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HolderType identifies what kind of entity owns a balance.
type HolderType string

const (
	HolderTypeBranch HolderType = "branch"
	HolderTypeVault  HolderType = "vault"
)

// Balance is the ledger row for one (holder, currency) pair. It is the only
// shared mutable resource in the core and is written exclusively through the
// balance use case.
type Balance struct {
	HolderID         string
	HolderType       HolderType
	Currency         string
	Balance          decimal.Decimal
	ReservedBalance  decimal.Decimal
	MinimumThreshold *decimal.Decimal
	MaximumThreshold *decimal.Decimal
	Version          int64
	LastUpdatedAt    time.Time
	CreatedAt        time.Time
}

// Available returns the balance not held by reservations.
func (b *Balance) Available() decimal.Decimal {
	return b.Balance.Sub(b.ReservedBalance)
}

// ValidateDelta checks whether applying delta keeps the row consistent:
// balance never negative, reserved never above balance.
func (b *Balance) ValidateDelta(delta decimal.Decimal) error {
	newBalance := b.Balance.Add(delta)
	if newBalance.IsNegative() {
		return ErrInsufficientBalance
	}
	if b.ReservedBalance.GreaterThan(newBalance) {
		return ErrReservedExceedsTotal
	}
	return nil
}

// ValidateReserve checks whether amount can be moved into reservation.
func (b *Balance) ValidateReserve(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if b.Available().LessThan(amount) {
		return ErrInsufficientBalance
	}
	return nil
}

// ValidateRelease checks whether amount can be released from reservation.
func (b *Balance) ValidateRelease(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if b.ReservedBalance.LessThan(amount) {
		return ErrReservedReleaseAmount
	}
	return nil
}

// ThresholdWarning describes a soft threshold crossing. Warnings never block
// a mutation, they are surfaced to the caller.
type ThresholdWarning struct {
	Kind       string // below_minimum or above_maximum
	Threshold  decimal.Decimal
	NewBalance decimal.Decimal
}

// ThresholdWarnings reports which configured thresholds the new balance
// crosses.
func (b *Balance) ThresholdWarnings(newBalance decimal.Decimal) []ThresholdWarning {
	var warnings []ThresholdWarning
	if b.MinimumThreshold != nil && newBalance.LessThan(*b.MinimumThreshold) {
		warnings = append(warnings, ThresholdWarning{
			Kind:       "below_minimum",
			Threshold:  *b.MinimumThreshold,
			NewBalance: newBalance,
		})
	}
	if b.MaximumThreshold != nil && newBalance.GreaterThan(*b.MaximumThreshold) {
		warnings = append(warnings, ThresholdWarning{
			Kind:       "above_maximum",
			Threshold:  *b.MaximumThreshold,
			NewBalance: newBalance,
		})
	}
	return warnings
}

// ChangeType classifies a balance mutation in the history trail.
type ChangeType string

const (
	ChangeTypeTransaction    ChangeType = "transaction"
	ChangeTypeTransfer       ChangeType = "transfer"
	ChangeTypeAdjustment     ChangeType = "adjustment"
	ChangeTypeReconciliation ChangeType = "reconciliation"
)

// HistoryEntry is an immutable append-only record of one balance mutation.
type HistoryEntry struct {
	ID            string
	HolderID      string
	HolderType    HolderType
	Currency      string
	ChangeType    ChangeType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceID   string
	ReferenceType string
	PerformedBy   string
	Notes         string
	CreatedAt     time.Time
}
