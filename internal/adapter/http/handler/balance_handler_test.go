package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

type balanceServiceStub struct {
	getFn       func(ctx context.Context, holderID, currency string) (*domain.Balance, error)
	listFn      func(ctx context.Context, holderID string) ([]*domain.Balance, error)
	historyFn   func(ctx context.Context, holderID, currency string, limit, offset int) ([]*domain.HistoryEntry, error)
	applyFn     func(ctx context.Context, input usecase.MutationInput) (*usecase.MutationResult, error)
	reserveFn   func(ctx context.Context, holderID, currency string, amount decimal.Decimal, performedBy string) (*domain.Balance, error)
	releaseFn   func(ctx context.Context, holderID, currency string, amount decimal.Decimal, performedBy string) (*domain.Balance, error)
	commitFn    func(ctx context.Context, input usecase.MutationInput) (*usecase.MutationResult, error)
	reconcileFn func(ctx context.Context, holderID, currency string, actual decimal.Decimal, performedBy, notes string) (*usecase.MutationResult, error)
}

func (s *balanceServiceStub) Get(ctx context.Context, holderID, currency string) (*domain.Balance, error) {
	return s.getFn(ctx, holderID, currency)
}

func (s *balanceServiceStub) ListByHolder(ctx context.Context, holderID string) ([]*domain.Balance, error) {
	return s.listFn(ctx, holderID)
}

func (s *balanceServiceStub) History(ctx context.Context, holderID, currency string, limit, offset int) ([]*domain.HistoryEntry, error) {
	return s.historyFn(ctx, holderID, currency, limit, offset)
}

func (s *balanceServiceStub) Apply(ctx context.Context, input usecase.MutationInput) (*usecase.MutationResult, error) {
	return s.applyFn(ctx, input)
}

func (s *balanceServiceStub) Reserve(ctx context.Context, holderID, currency string, amount decimal.Decimal, performedBy string) (*domain.Balance, error) {
	return s.reserveFn(ctx, holderID, currency, amount, performedBy)
}

func (s *balanceServiceStub) Release(ctx context.Context, holderID, currency string, amount decimal.Decimal, performedBy string) (*domain.Balance, error) {
	return s.releaseFn(ctx, holderID, currency, amount, performedBy)
}

func (s *balanceServiceStub) CommitReserved(ctx context.Context, input usecase.MutationInput) (*usecase.MutationResult, error) {
	return s.commitFn(ctx, input)
}

func (s *balanceServiceStub) Reconcile(ctx context.Context, holderID, currency string, actual decimal.Decimal, performedBy, notes string) (*usecase.MutationResult, error) {
	return s.reconcileFn(ctx, holderID, currency, actual, performedBy, notes)
}

func TestBalanceHandler_Get_Success(t *testing.T) {
	balance := &domain.Balance{
		HolderID:        "branch-1",
		HolderType:      domain.HolderTypeBranch,
		Currency:        "USD",
		Balance:         decimal.NewFromInt(1000),
		ReservedBalance: decimal.NewFromInt(200),
	}

	handler := NewBalanceHandler(&balanceServiceStub{
		getFn: func(ctx context.Context, holderID, currency string) (*domain.Balance, error) {
			if holderID != "branch-1" || currency != "USD" {
				t.Fatalf("unexpected args: %s %s", holderID, currency)
			}
			return balance, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/holders/branch-1/balances/USD", nil)
	req = setChiURLParams(req, map[string]string{"id": "branch-1", "currency": "USD"})
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.AvailableBalance.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("expected available 800, got %s", resp.AvailableBalance)
	}
}

func TestBalanceHandler_Adjust_Insufficient(t *testing.T) {
	handler := NewBalanceHandler(&balanceServiceStub{
		applyFn: func(ctx context.Context, input usecase.MutationInput) (*usecase.MutationResult, error) {
			return nil, domain.ErrInsufficientBalance
		},
	})

	body, _ := json.Marshal(dto.AdjustBalanceRequest{
		HolderType:  "branch",
		Currency:    "USD",
		Delta:       decimal.NewFromInt(-5000),
		PerformedBy: "user-1",
	})

	req := httptest.NewRequest(http.MethodPost, "/holders/branch-1/adjust", bytes.NewReader(body))
	req = setChiURLParam(req, "id", "branch-1")
	rec := httptest.NewRecorder()

	handler.Adjust(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Code != "INSUFFICIENT_BALANCE" {
		t.Fatalf("expected INSUFFICIENT_BALANCE code, got %q", resp.Code)
	}
}

func TestBalanceHandler_Commit_Success(t *testing.T) {
	var captured usecase.MutationInput
	handler := NewBalanceHandler(&balanceServiceStub{
		commitFn: func(ctx context.Context, input usecase.MutationInput) (*usecase.MutationResult, error) {
			captured = input
			return &usecase.MutationResult{
				Balance: &domain.Balance{
					HolderID:        input.HolderID,
					Currency:        input.Currency,
					Balance:         decimal.NewFromInt(700),
					ReservedBalance: decimal.NewFromInt(0),
				},
			}, nil
		},
	})

	body, _ := json.Marshal(dto.CommitReservedRequest{
		HolderType:  "vault",
		Currency:    "USD",
		Amount:      decimal.NewFromInt(300),
		PerformedBy: "user-1",
	})

	req := httptest.NewRequest(http.MethodPost, "/holders/vault-1/commit", bytes.NewReader(body))
	req = setChiURLParam(req, "id", "vault-1")
	rec := httptest.NewRecorder()

	handler.Commit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.HolderID != "vault-1" || !captured.Delta.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected input: %+v", captured)
	}
}

func TestBalanceHandler_Reconcile_WithWarnings(t *testing.T) {
	minimum := decimal.NewFromInt(500)
	handler := NewBalanceHandler(&balanceServiceStub{
		reconcileFn: func(ctx context.Context, holderID, currency string, actual decimal.Decimal, performedBy, notes string) (*usecase.MutationResult, error) {
			return &usecase.MutationResult{
				Balance: &domain.Balance{
					HolderID: holderID,
					Currency: currency,
					Balance:  actual,
				},
				Warnings: []domain.ThresholdWarning{{
					Kind:       "below_minimum",
					Threshold:  minimum,
					NewBalance: actual,
				}},
			}, nil
		},
	})

	body, _ := json.Marshal(dto.ReconcileRequest{
		Currency:    "USD",
		Actual:      decimal.NewFromInt(450),
		PerformedBy: "user-1",
		Notes:       "end of day count",
	})

	req := httptest.NewRequest(http.MethodPost, "/holders/branch-1/reconcile", bytes.NewReader(body))
	req = setChiURLParam(req, "id", "branch-1")
	rec := httptest.NewRecorder()

	handler.Reconcile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.MutationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Kind != "below_minimum" {
		t.Fatalf("expected below_minimum warning, got %+v", resp.Warnings)
	}
}
