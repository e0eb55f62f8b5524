package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
)

type rateSourceStub struct {
	latestFunc func(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error)
}

func (s *rateSourceStub) Latest(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error) {
	return s.latestFunc(ctx, fromCurrency, toCurrency)
}

type rateStoreStub struct {
	insertFunc func(ctx context.Context, rate *domain.Rate) error
}

func (s *rateStoreStub) Insert(ctx context.Context, rate *domain.Rate) error {
	return s.insertFunc(ctx, rate)
}

type rateInvalidatorStub struct {
	invalidated []string
}

func (s *rateInvalidatorStub) Invalidate(ctx context.Context, fromCurrency, toCurrency string) error {
	s.invalidated = append(s.invalidated, fromCurrency+"/"+toCurrency)
	return nil
}

func TestRateHandler_Latest_Success(t *testing.T) {
	source := &rateSourceStub{
		latestFunc: func(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error) {
			if fromCurrency != "USD" || toCurrency != "EUR" {
				t.Errorf("unexpected pair %s/%s", fromCurrency, toCurrency)
			}
			return &domain.Rate{
				FromCurrency: "USD",
				ToCurrency:   "EUR",
				Rate:         decimal.RequireFromString("0.92"),
				EffectiveAt:  time.Now(),
			}, nil
		},
	}
	h := NewRateHandler(source, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/rates/USD/EUR", nil)
	req = setChiURLParams(req, map[string]string{"from": "USD", "to": "EUR"})
	rec := httptest.NewRecorder()

	h.Latest(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp dto.RateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Rate.Equal(decimal.RequireFromString("0.92")) {
		t.Errorf("expected rate 0.92, got %s", resp.Rate)
	}
}

func TestRateHandler_Latest_NotFound(t *testing.T) {
	source := &rateSourceStub{
		latestFunc: func(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error) {
			return nil, domain.ErrRateNotFound
		},
	}
	h := NewRateHandler(source, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/rates/USD/XXX", nil)
	req = setChiURLParams(req, map[string]string{"from": "USD", "to": "XXX"})
	rec := httptest.NewRecorder()

	h.Latest(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRateHandler_Publish_Success(t *testing.T) {
	var inserted *domain.Rate
	store := &rateStoreStub{
		insertFunc: func(ctx context.Context, rate *domain.Rate) error {
			inserted = rate
			return nil
		},
	}
	cache := &rateInvalidatorStub{}
	h := NewRateHandler(nil, store, cache)

	body := `{"from_currency":"USD","to_currency":"EUR","rate":"0.93"}`
	req := httptest.NewRequest(http.MethodPost, "/rates", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Publish(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if inserted == nil {
		t.Fatal("expected rate to be inserted")
	}
	if inserted.EffectiveAt.IsZero() {
		t.Error("expected EffectiveAt to default to now")
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "USD/EUR" {
		t.Errorf("expected USD/EUR invalidation, got %v", cache.invalidated)
	}
}

func TestRateHandler_Publish_SamePair(t *testing.T) {
	store := &rateStoreStub{
		insertFunc: func(ctx context.Context, rate *domain.Rate) error {
			t.Fatal("insert should not be called")
			return nil
		},
	}
	h := NewRateHandler(nil, store, nil)

	body := `{"from_currency":"USD","to_currency":"USD","rate":"1.0"}`
	req := httptest.NewRequest(http.MethodPost, "/rates", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Publish(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRateHandler_Publish_NonPositiveRate(t *testing.T) {
	h := NewRateHandler(nil, &rateStoreStub{
		insertFunc: func(ctx context.Context, rate *domain.Rate) error {
			t.Fatal("insert should not be called")
			return nil
		},
	}, nil)

	body := `{"from_currency":"USD","to_currency":"EUR","rate":"0"}`
	req := httptest.NewRequest(http.MethodPost, "/rates", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Publish(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
