package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// TransactionService defines the transaction operations used by HTTP handlers.
type TransactionService interface {
	CreateIncome(ctx context.Context, input usecase.CreateIncomeInput) (*domain.Transaction, error)
	CreateExpense(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Transaction, error)
	CreateExchange(ctx context.Context, input usecase.CreateExchangeInput) (*domain.Transaction, error)
	CreateTransfer(ctx context.Context, input usecase.CreateTransferInput) (*domain.Transaction, error)
	Complete(ctx context.Context, id, actorID string) (*domain.Transaction, error)
	Cancel(ctx context.Context, id, actorID, reason string) (*domain.Transaction, error)
	Fail(ctx context.Context, id, reason string) (*domain.Transaction, error)
	Retry(ctx context.Context, id string) (*domain.Transaction, error)
	ApproveExpense(ctx context.Context, id, approverID string) (*domain.Transaction, error)
	MarkReceived(ctx context.Context, id, receiverID string) (*domain.Transaction, error)
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*domain.Transaction, error)
}

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	transactionUC TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionUC TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionUC: transactionUC}
}

// CreateIncome records a new income transaction.
func (h *TransactionHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateIncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	txn, err := h.transactionUC.CreateIncome(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, statusForCreate(err), "failed to create income", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// CreateExpense records a new expense transaction.
func (h *TransactionHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	txn, err := h.transactionUC.CreateExpense(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, statusForCreate(err), "failed to create expense", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// CreateExchange records a new currency exchange transaction.
func (h *TransactionHandler) CreateExchange(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	txn, err := h.transactionUC.CreateExchange(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, statusForCreate(err), "failed to create exchange", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// CreateTransfer records a new branch transfer transaction.
func (h *TransactionHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	txn, err := h.transactionUC.CreateTransfer(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, statusForCreate(err), "failed to create transfer", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// Complete finalizes a transaction and applies its balance effects.
func (h *TransactionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	txn, err := h.transactionUC.Complete(r.Context(), id, req.ActorID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to complete transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Cancel cancels a transaction before completion.
func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	txn, err := h.transactionUC.Cancel(r.Context(), id, req.ActorID, req.Reason)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to cancel transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Fail marks a transaction as failed.
func (h *TransactionHandler) Fail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	txn, err := h.transactionUC.Fail(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to fail transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Retry moves a failed transaction back to pending.
func (h *TransactionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	txn, err := h.transactionUC.Retry(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to retry transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Approve records manager approval on an expense.
func (h *TransactionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	txn, err := h.transactionUC.ApproveExpense(r.Context(), id, req.ActorID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to approve expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Receive confirms the physical hand-off of a completed transfer.
func (h *TransactionHandler) Receive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	txn, err := h.transactionUC.MarkReceived(r.Context(), id, req.ActorID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to mark transfer received", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", nil)
		return
	}

	txn, err := h.transactionUC.Get(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// ListByBranch lists transactions for a branch, newest first.
func (h *TransactionHandler) ListByBranch(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "id")
	if branchID == "" {
		writeError(w, http.StatusBadRequest, "missing branch ID", nil)
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	transactions, err := h.transactionUC.ListByBranch(r.Context(), branchID, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(transactions))
}
