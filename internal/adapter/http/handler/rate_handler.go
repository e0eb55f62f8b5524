package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// RateStore persists published exchange rates.
type RateStore interface {
	Insert(ctx context.Context, rate *domain.Rate) error
}

// RateInvalidator drops a cached rate after a newer one is published.
type RateInvalidator interface {
	Invalidate(ctx context.Context, fromCurrency, toCurrency string) error
}

// RateHandler serves exchange rate lookups and publishes new rates.
type RateHandler struct {
	rates usecase.RateSource
	store RateStore
	cache RateInvalidator
}

// NewRateHandler creates a new RateHandler. cache may be nil when lookups
// are not cached.
func NewRateHandler(rates usecase.RateSource, store RateStore, cache RateInvalidator) *RateHandler {
	return &RateHandler{rates: rates, store: store, cache: cache}
}

// Latest returns the most recent rate for a currency pair.
func (h *RateHandler) Latest(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")

	rate, err := h.rates.Latest(r.Context(), from, to)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get rate", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RateFromDomain(rate))
}

// Publish records a new rate for a pair and invalidates the cached one.
func (h *RateHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req dto.PublishRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := domain.ValidateCurrencyCode(req.FromCurrency); err != nil {
		writeError(w, http.StatusBadRequest, "invalid source currency", err)
		return
	}
	if err := domain.ValidateCurrencyCode(req.ToCurrency); err != nil {
		writeError(w, http.StatusBadRequest, "invalid target currency", err)
		return
	}
	if req.FromCurrency == req.ToCurrency {
		writeError(w, http.StatusBadRequest, "currencies must differ", domain.ErrSameCurrency)
		return
	}
	if !req.Rate.IsPositive() {
		writeError(w, http.StatusBadRequest, "rate must be positive", domain.ErrInvalidAmount)
		return
	}

	rate := req.ToDomain(time.Now())
	if err := h.store.Insert(r.Context(), rate); err != nil {
		writeError(w, mapDomainError(err), "failed to publish rate", err)
		return
	}

	// Stale cache entries expire on their own; dropping them just shortens
	// the window.
	if h.cache != nil {
		_ = h.cache.Invalidate(r.Context(), rate.FromCurrency, rate.ToCurrency)
	}

	writeJSON(w, http.StatusCreated, dto.RateFromDomain(rate))
}
