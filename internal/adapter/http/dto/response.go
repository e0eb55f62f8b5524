package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// TransactionResponse represents a transaction in API responses. Only the
// detail block matching the type is populated.
type TransactionResponse struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	Type            string          `json:"type"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BranchID        string          `json:"branch_id"`
	UserID          string          `json:"user_id"`
	CustomerID      string          `json:"customer_id,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`

	Income   *IncomeDetailsResponse   `json:"income,omitempty"`
	Expense  *ExpenseDetailsResponse  `json:"expense,omitempty"`
	Exchange *ExchangeDetailsResponse `json:"exchange,omitempty"`
	Transfer *TransferDetailsResponse `json:"transfer,omitempty"`

	TransactionAt time.Time  `json:"transaction_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy   string     `json:"cancelled_by,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IncomeDetailsResponse represents income details in API responses.
type IncomeDetailsResponse struct {
	Category string `json:"category"`
	Source   string `json:"source"`
}

// ExpenseDetailsResponse represents expense details in API responses.
type ExpenseDetailsResponse struct {
	Category         string     `json:"category"`
	Payee            string     `json:"payee"`
	ApprovalRequired bool       `json:"approval_required"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
}

// ExchangeDetailsResponse represents exchange details in API responses.
type ExchangeDetailsResponse struct {
	FromCurrency         string          `json:"from_currency"`
	ToCurrency           string          `json:"to_currency"`
	FromAmount           decimal.Decimal `json:"from_amount"`
	ToAmount             decimal.Decimal `json:"to_amount"`
	RateUsed             decimal.Decimal `json:"rate_used"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	CommissionAmount     decimal.Decimal `json:"commission_amount"`
}

// TransferDetailsResponse represents transfer details in API responses.
type TransferDetailsResponse struct {
	FromBranchID string     `json:"from_branch_id"`
	ToBranchID   string     `json:"to_branch_id,omitempty"`
	VaultID      string     `json:"vault_id,omitempty"`
	Direction    string     `json:"direction"`
	ReceivedBy   string     `json:"received_by,omitempty"`
	ReceivedAt   *time.Time `json:"received_at,omitempty"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:              t.ID,
		Number:          t.Number,
		Type:            string(t.Type),
		Status:          string(t.Status),
		Amount:          t.Amount,
		Currency:        t.Currency,
		BranchID:        t.BranchID,
		UserID:          t.UserID,
		CustomerID:      t.CustomerID,
		ReferenceNumber: t.ReferenceNumber,
		Notes:           t.Notes,
		TransactionAt:   t.TransactionAt,
		CompletedAt:     t.CompletedAt,
		CancelledAt:     t.CancelledAt,
		CancelledBy:     t.CancelledBy,
		CancelReason:    t.CancelReason,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.Income != nil {
		resp.Income = &IncomeDetailsResponse{
			Category: t.Income.Category,
			Source:   t.Income.Source,
		}
	}
	if t.Expense != nil {
		resp.Expense = &ExpenseDetailsResponse{
			Category:         t.Expense.Category,
			Payee:            t.Expense.Payee,
			ApprovalRequired: t.Expense.ApprovalRequired,
			ApprovedBy:       t.Expense.ApprovedBy,
			ApprovedAt:       t.Expense.ApprovedAt,
		}
	}
	if t.Exchange != nil {
		resp.Exchange = &ExchangeDetailsResponse{
			FromCurrency:         t.Exchange.FromCurrency,
			ToCurrency:           t.Exchange.ToCurrency,
			FromAmount:           t.Exchange.FromAmount,
			ToAmount:             t.Exchange.ToAmount,
			RateUsed:             t.Exchange.RateUsed,
			CommissionPercentage: t.Exchange.CommissionPercentage,
			CommissionAmount:     t.Exchange.CommissionAmount,
		}
	}
	if t.Transfer != nil {
		resp.Transfer = &TransferDetailsResponse{
			FromBranchID: t.Transfer.FromBranchID,
			ToBranchID:   t.Transfer.ToBranchID,
			VaultID:      t.Transfer.VaultID,
			Direction:    string(t.Transfer.Direction),
			ReceivedBy:   t.Transfer.ReceivedBy,
			ReceivedAt:   t.Transfer.ReceivedAt,
		}
	}
	return resp
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(transactions []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(transactions))
	for i, t := range transactions {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// VaultTransferResponse represents a vault transfer in API responses.
type VaultTransferResponse struct {
	ID           string          `json:"id"`
	Number       string          `json:"number"`
	FromVaultID  string          `json:"from_vault_id,omitempty"`
	FromBranchID string          `json:"from_branch_id,omitempty"`
	ToVaultID    string          `json:"to_vault_id,omitempty"`
	ToBranchID   string          `json:"to_branch_id,omitempty"`
	Currency     string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`

	InitiatedBy string `json:"initiated_by"`
	ApprovedBy  string `json:"approved_by,omitempty"`
	ReceivedBy  string `json:"received_by,omitempty"`

	InitiatedAt     time.Time  `json:"initiated_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// VaultTransferFromDomain converts a domain vault transfer to a response.
func VaultTransferFromDomain(vt *domain.VaultTransfer) *VaultTransferResponse {
	return &VaultTransferResponse{
		ID:              vt.ID,
		Number:          vt.Number,
		FromVaultID:     vt.FromVaultID,
		FromBranchID:    vt.FromBranchID,
		ToVaultID:       vt.ToVaultID,
		ToBranchID:      vt.ToBranchID,
		Currency:        vt.Currency,
		Amount:          vt.Amount,
		Type:            string(vt.Type),
		Status:          string(vt.Status),
		InitiatedBy:     vt.InitiatedBy,
		ApprovedBy:      vt.ApprovedBy,
		ReceivedBy:      vt.ReceivedBy,
		InitiatedAt:     vt.InitiatedAt,
		ApprovedAt:      vt.ApprovedAt,
		CompletedAt:     vt.CompletedAt,
		CancelledAt:     vt.CancelledAt,
		Notes:           vt.Notes,
		RejectionReason: vt.RejectionReason,
	}
}

// VaultTransfersFromDomain converts domain vault transfers to responses.
func VaultTransfersFromDomain(transfers []*domain.VaultTransfer) []*VaultTransferResponse {
	result := make([]*VaultTransferResponse, len(transfers))
	for i, vt := range transfers {
		result[i] = VaultTransferFromDomain(vt)
	}
	return result
}

// BalanceResponse represents a balance row in API responses.
type BalanceResponse struct {
	HolderID         string           `json:"holder_id"`
	HolderType       string           `json:"holder_type"`
	Currency         string           `json:"currency"`
	Balance          decimal.Decimal  `json:"balance"`
	ReservedBalance  decimal.Decimal  `json:"reserved_balance"`
	AvailableBalance decimal.Decimal  `json:"available_balance"`
	MinimumThreshold *decimal.Decimal `json:"minimum_threshold,omitempty"`
	MaximumThreshold *decimal.Decimal `json:"maximum_threshold,omitempty"`
	Version          int64            `json:"version"`
	LastUpdatedAt    time.Time        `json:"last_updated_at"`
}

// BalanceFromDomain converts a domain balance to a response.
func BalanceFromDomain(b *domain.Balance) *BalanceResponse {
	return &BalanceResponse{
		HolderID:         b.HolderID,
		HolderType:       string(b.HolderType),
		Currency:         b.Currency,
		Balance:          b.Balance,
		ReservedBalance:  b.ReservedBalance,
		AvailableBalance: b.Available(),
		MinimumThreshold: b.MinimumThreshold,
		MaximumThreshold: b.MaximumThreshold,
		Version:          b.Version,
		LastUpdatedAt:    b.LastUpdatedAt,
	}
}

// BalancesFromDomain converts domain balances to responses.
func BalancesFromDomain(balances []*domain.Balance) []*BalanceResponse {
	result := make([]*BalanceResponse, len(balances))
	for i, b := range balances {
		result[i] = BalanceFromDomain(b)
	}
	return result
}

// ThresholdWarningResponse represents a soft threshold crossing.
type ThresholdWarningResponse struct {
	Kind       string          `json:"kind"`
	Threshold  decimal.Decimal `json:"threshold"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// MutationResponse represents the outcome of a balance mutation.
type MutationResponse struct {
	Balance  *BalanceResponse           `json:"balance"`
	Warnings []ThresholdWarningResponse `json:"warnings,omitempty"`
}

// MutationFromUseCase converts a mutation result to a response.
func MutationFromUseCase(res *usecase.MutationResult) *MutationResponse {
	resp := &MutationResponse{Balance: BalanceFromDomain(res.Balance)}
	for _, w := range res.Warnings {
		resp.Warnings = append(resp.Warnings, ThresholdWarningResponse{
			Kind:       w.Kind,
			Threshold:  w.Threshold,
			NewBalance: w.NewBalance,
		})
	}
	return resp
}

// HistoryEntryResponse represents a balance history entry in API responses.
type HistoryEntryResponse struct {
	ID            string          `json:"id"`
	HolderID      string          `json:"holder_id"`
	HolderType    string          `json:"holder_type"`
	Currency      string          `json:"currency"`
	ChangeType    string          `json:"change_type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	ReferenceType string          `json:"reference_type,omitempty"`
	PerformedBy   string          `json:"performed_by"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// HistoryFromDomain converts domain history entries to responses.
func HistoryFromDomain(entries []*domain.HistoryEntry) []*HistoryEntryResponse {
	result := make([]*HistoryEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = &HistoryEntryResponse{
			ID:            e.ID,
			HolderID:      e.HolderID,
			HolderType:    string(e.HolderType),
			Currency:      e.Currency,
			ChangeType:    string(e.ChangeType),
			Amount:        e.Amount,
			BalanceBefore: e.BalanceBefore,
			BalanceAfter:  e.BalanceAfter,
			ReferenceID:   e.ReferenceID,
			ReferenceType: e.ReferenceType,
			PerformedBy:   e.PerformedBy,
			Notes:         e.Notes,
			CreatedAt:     e.CreatedAt,
		}
	}
	return result
}

// RateResponse represents an exchange rate in API responses.
type RateResponse struct {
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	EffectiveAt  time.Time       `json:"effective_at"`
}

// RateFromDomain converts a domain rate to a response.
func RateFromDomain(r *domain.Rate) *RateResponse {
	return &RateResponse{
		FromCurrency: r.FromCurrency,
		ToCurrency:   r.ToCurrency,
		Rate:         r.Rate,
		EffectiveAt:  r.EffectiveAt,
	}
}

// ErrorResponse represents an error in API responses. Code is the stable
// machine-readable classification clients branch on.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
