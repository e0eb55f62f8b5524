package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// BalanceService defines the balance operations used by HTTP handlers.
type BalanceService interface {
	Get(ctx context.Context, holderID, currency string) (*domain.Balance, error)
	ListByHolder(ctx context.Context, holderID string) ([]*domain.Balance, error)
	History(ctx context.Context, holderID, currency string, limit, offset int) ([]*domain.HistoryEntry, error)
	Apply(ctx context.Context, input usecase.MutationInput) (*usecase.MutationResult, error)
	Reserve(ctx context.Context, holderID, currency string, amount decimal.Decimal, performedBy string) (*domain.Balance, error)
	Release(ctx context.Context, holderID, currency string, amount decimal.Decimal, performedBy string) (*domain.Balance, error)
	CommitReserved(ctx context.Context, input usecase.MutationInput) (*usecase.MutationResult, error)
	Reconcile(ctx context.Context, holderID, currency string, actual decimal.Decimal, performedBy, notes string) (*usecase.MutationResult, error)
}

// BalanceHandler handles balance-related HTTP requests.
type BalanceHandler struct {
	balanceUC BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC}
}

// Get retrieves one (holder, currency) balance row.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	holderID := chi.URLParam(r, "id")
	currency := chi.URLParam(r, "currency")

	balance, err := h.balanceUC.Get(r.Context(), holderID, currency)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance))
}

// List lists all currency balances for one holder.
func (h *BalanceHandler) List(w http.ResponseWriter, r *http.Request) {
	holderID := chi.URLParam(r, "id")
	if holderID == "" {
		writeError(w, http.StatusBadRequest, "missing holder ID", nil)
		return
	}

	balances, err := h.balanceUC.ListByHolder(r.Context(), holderID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromDomain(balances))
}

// History returns the mutation trail for a balance, newest first.
func (h *BalanceHandler) History(w http.ResponseWriter, r *http.Request) {
	holderID := chi.URLParam(r, "id")
	currency := chi.URLParam(r, "currency")
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.balanceUC.History(r.Context(), holderID, currency, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get balance history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.HistoryFromDomain(entries))
}

// Adjust applies a manual signed correction to a balance.
func (h *BalanceHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	holderID := chi.URLParam(r, "id")
	var req dto.AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.balanceUC.Apply(r.Context(), req.ToUseCaseInput(holderID))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to adjust balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MutationFromUseCase(result))
}

// Reserve earmarks available funds without changing the total.
func (h *BalanceHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	holderID := chi.URLParam(r, "id")
	var req dto.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	balance, err := h.balanceUC.Reserve(r.Context(), holderID, req.Currency, req.Amount, req.PerformedBy)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reserve funds", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance))
}

// Release returns reserved funds to the available pool.
func (h *BalanceHandler) Release(w http.ResponseWriter, r *http.Request) {
	holderID := chi.URLParam(r, "id")
	var req dto.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	balance, err := h.balanceUC.Release(r.Context(), holderID, req.Currency, req.Amount, req.PerformedBy)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to release funds", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance))
}

// Commit debits previously reserved funds, shrinking the reservation and
// the balance together.
func (h *BalanceHandler) Commit(w http.ResponseWriter, r *http.Request) {
	holderID := chi.URLParam(r, "id")
	var req dto.CommitReservedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.balanceUC.CommitReserved(r.Context(), req.ToUseCaseInput(holderID))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to commit reserved funds", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MutationFromUseCase(result))
}

// Reconcile overwrites the stored balance with a physically counted value.
func (h *BalanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	holderID := chi.URLParam(r, "id")
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.balanceUC.Reconcile(r.Context(), holderID, req.Currency, req.Actual, req.PerformedBy, req.Notes)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reconcile balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MutationFromUseCase(result))
}
