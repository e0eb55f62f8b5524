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

// VaultTransferService defines the vault transfer operations used by HTTP
// handlers.
type VaultTransferService interface {
	Initiate(ctx context.Context, input usecase.InitiateVaultTransferInput) (*domain.VaultTransfer, error)
	Approve(ctx context.Context, id, approverID string) (*domain.VaultTransfer, error)
	Reject(ctx context.Context, id, reason string) (*domain.VaultTransfer, error)
	Cancel(ctx context.Context, id, reason string) (*domain.VaultTransfer, error)
	Complete(ctx context.Context, id, receiverID string) (*domain.VaultTransfer, error)
	Get(ctx context.Context, id string) (*domain.VaultTransfer, error)
	List(ctx context.Context, status domain.VaultTransferStatus, limit, offset int) ([]*domain.VaultTransfer, error)
}

// VaultTransferHandler handles vault transfer HTTP requests.
type VaultTransferHandler struct {
	vaultTransferUC VaultTransferService
}

// NewVaultTransferHandler creates a new VaultTransferHandler.
func NewVaultTransferHandler(vaultTransferUC VaultTransferService) *VaultTransferHandler {
	return &VaultTransferHandler{vaultTransferUC: vaultTransferUC}
}

// Initiate starts a new vault transfer.
func (h *VaultTransferHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req dto.InitiateVaultTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	vt, err := h.vaultTransferUC.Initiate(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, statusForCreate(err), "failed to initiate vault transfer", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.VaultTransferFromDomain(vt))
}

// Approve records manager approval and moves the transfer in transit.
func (h *VaultTransferHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	vt, err := h.vaultTransferUC.Approve(r.Context(), id, req.ActorID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to approve vault transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VaultTransferFromDomain(vt))
}

// Reject declines a pending vault transfer.
func (h *VaultTransferHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	vt, err := h.vaultTransferUC.Reject(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reject vault transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VaultTransferFromDomain(vt))
}

// Cancel withdraws a vault transfer before completion.
func (h *VaultTransferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	vt, err := h.vaultTransferUC.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to cancel vault transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VaultTransferFromDomain(vt))
}

// Complete confirms receipt and moves the funds between endpoints.
func (h *VaultTransferHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	vt, err := h.vaultTransferUC.Complete(r.Context(), id, req.ActorID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to complete vault transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VaultTransferFromDomain(vt))
}

// Get retrieves a vault transfer by ID.
func (h *VaultTransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing vault transfer ID", nil)
		return
	}

	vt, err := h.vaultTransferUC.Get(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get vault transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VaultTransferFromDomain(vt))
}

// List lists vault transfers, optionally filtered by status.
func (h *VaultTransferHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.VaultTransferStatus(r.URL.Query().Get("status"))
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	transfers, err := h.vaultTransferUC.List(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list vault transfers", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VaultTransfersFromDomain(transfers))
}
