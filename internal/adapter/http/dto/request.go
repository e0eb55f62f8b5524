package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// CreateIncomeRequest represents a request to record an income transaction.
type CreateIncomeRequest struct {
	BranchID        string          `json:"branch_id"`
	UserID          string          `json:"user_id"`
	CustomerID      string          `json:"customer_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Category        string          `json:"category"`
	Source          string          `json:"source"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	TransactionAt   *time.Time      `json:"transaction_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateIncomeRequest) ToUseCaseInput() usecase.CreateIncomeInput {
	return usecase.CreateIncomeInput{
		BranchID:        r.BranchID,
		UserID:          r.UserID,
		CustomerID:      r.CustomerID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		Category:        r.Category,
		Source:          r.Source,
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
		TransactionAt:   r.TransactionAt,
	}
}

// CreateExpenseRequest represents a request to record an expense transaction.
type CreateExpenseRequest struct {
	BranchID         string          `json:"branch_id"`
	UserID           string          `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Category         string          `json:"category"`
	Payee            string          `json:"payee"`
	ApprovalRequired bool            `json:"approval_required"`
	ReferenceNumber  string          `json:"reference_number,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	TransactionAt    *time.Time      `json:"transaction_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateExpenseRequest) ToUseCaseInput() usecase.CreateExpenseInput {
	return usecase.CreateExpenseInput{
		BranchID:         r.BranchID,
		UserID:           r.UserID,
		Amount:           r.Amount,
		Currency:         r.Currency,
		Category:         r.Category,
		Payee:            r.Payee,
		ApprovalRequired: r.ApprovalRequired,
		ReferenceNumber:  r.ReferenceNumber,
		Notes:            r.Notes,
		TransactionAt:    r.TransactionAt,
	}
}

// CreateExchangeRequest represents a request to record a currency exchange.
type CreateExchangeRequest struct {
	BranchID             string          `json:"branch_id"`
	UserID               string          `json:"user_id"`
	CustomerID           string          `json:"customer_id,omitempty"`
	FromCurrency         string          `json:"from_currency"`
	ToCurrency           string          `json:"to_currency"`
	FromAmount           decimal.Decimal `json:"from_amount"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	ReferenceNumber      string          `json:"reference_number,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	TransactionAt        *time.Time      `json:"transaction_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateExchangeRequest) ToUseCaseInput() usecase.CreateExchangeInput {
	return usecase.CreateExchangeInput{
		BranchID:             r.BranchID,
		UserID:               r.UserID,
		CustomerID:           r.CustomerID,
		FromCurrency:         r.FromCurrency,
		ToCurrency:           r.ToCurrency,
		FromAmount:           r.FromAmount,
		CommissionPercentage: r.CommissionPercentage,
		ReferenceNumber:      r.ReferenceNumber,
		Notes:                r.Notes,
		TransactionAt:        r.TransactionAt,
	}
}

// CreateTransferRequest represents a request to record a branch transfer.
type CreateTransferRequest struct {
	FromBranchID    string          `json:"from_branch_id"`
	ToBranchID      string          `json:"to_branch_id,omitempty"`
	VaultID         string          `json:"vault_id,omitempty"`
	Direction       string          `json:"direction"`
	UserID          string          `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	TransactionAt   *time.Time      `json:"transaction_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput() usecase.CreateTransferInput {
	return usecase.CreateTransferInput{
		FromBranchID:    r.FromBranchID,
		ToBranchID:      r.ToBranchID,
		VaultID:         r.VaultID,
		Direction:       domain.TransferDirection(r.Direction),
		UserID:          r.UserID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
		TransactionAt:   r.TransactionAt,
	}
}

// ActorRequest carries the user performing a lifecycle action.
type ActorRequest struct {
	ActorID string `json:"actor_id"`
}

// ReasonRequest carries the user and reason for cancel, fail and reject
// actions.
type ReasonRequest struct {
	ActorID string `json:"actor_id,omitempty"`
	Reason  string `json:"reason"`
}

// InitiateVaultTransferRequest represents a request to start a vault
// transfer. Exactly one source and one destination must be set.
type InitiateVaultTransferRequest struct {
	FromVaultID  string          `json:"from_vault_id,omitempty"`
	FromBranchID string          `json:"from_branch_id,omitempty"`
	ToVaultID    string          `json:"to_vault_id,omitempty"`
	ToBranchID   string          `json:"to_branch_id,omitempty"`
	Currency     string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
	InitiatedBy  string          `json:"initiated_by"`
	Notes        string          `json:"notes,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *InitiateVaultTransferRequest) ToUseCaseInput() usecase.InitiateVaultTransferInput {
	return usecase.InitiateVaultTransferInput{
		FromVaultID:  r.FromVaultID,
		FromBranchID: r.FromBranchID,
		ToVaultID:    r.ToVaultID,
		ToBranchID:   r.ToBranchID,
		Currency:     r.Currency,
		Amount:       r.Amount,
		InitiatedBy:  r.InitiatedBy,
		Notes:        r.Notes,
	}
}

// AdjustBalanceRequest represents a manual balance adjustment.
type AdjustBalanceRequest struct {
	HolderType  string          `json:"holder_type"`
	Currency    string          `json:"currency"`
	Delta       decimal.Decimal `json:"delta"`
	PerformedBy string          `json:"performed_by"`
	Notes       string          `json:"notes,omitempty"`
}

// ToUseCaseInput converts to use case input for the given holder.
func (r *AdjustBalanceRequest) ToUseCaseInput(holderID string) usecase.MutationInput {
	return usecase.MutationInput{
		HolderID:    holderID,
		HolderType:  domain.HolderType(r.HolderType),
		Currency:    r.Currency,
		Delta:       r.Delta,
		ChangeType:  domain.ChangeTypeAdjustment,
		PerformedBy: r.PerformedBy,
		Notes:       r.Notes,
	}
}

// ReserveRequest represents a reserve or release of available funds.
type ReserveRequest struct {
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	PerformedBy string          `json:"performed_by"`
}

// CommitReservedRequest represents a debit of previously reserved funds.
type CommitReservedRequest struct {
	HolderType  string          `json:"holder_type"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	PerformedBy string          `json:"performed_by"`
	Notes       string          `json:"notes,omitempty"`
}

// ToUseCaseInput converts to use case input for the given holder.
func (r *CommitReservedRequest) ToUseCaseInput(holderID string) usecase.MutationInput {
	return usecase.MutationInput{
		HolderID:    holderID,
		HolderType:  domain.HolderType(r.HolderType),
		Currency:    r.Currency,
		Delta:       r.Amount,
		ChangeType:  domain.ChangeTypeAdjustment,
		PerformedBy: r.PerformedBy,
		Notes:       r.Notes,
	}
}

// ReconcileRequest represents a physical count reconciliation.
type ReconcileRequest struct {
	Currency    string          `json:"currency"`
	Actual      decimal.Decimal `json:"actual"`
	PerformedBy string          `json:"performed_by"`
	Notes       string          `json:"notes,omitempty"`
}

// PublishRateRequest represents a new exchange rate for a currency pair.
type PublishRateRequest struct {
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	EffectiveAt  *time.Time      `json:"effective_at,omitempty"`
}

// ToDomain converts to a domain rate, defaulting EffectiveAt to now.
func (r *PublishRateRequest) ToDomain(now time.Time) *domain.Rate {
	effectiveAt := now
	if r.EffectiveAt != nil {
		effectiveAt = *r.EffectiveAt
	}
	return &domain.Rate{
		FromCurrency: r.FromCurrency,
		ToCurrency:   r.ToCurrency,
		Rate:         r.Rate,
		EffectiveAt:  effectiveAt,
	}
}
