package redis

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
)

type countingRateSource struct {
	rate  *domain.Rate
	err   error
	calls int
}

func (s *countingRateSource) Latest(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rate, nil
}

func TestRateCache_CachesSourceResult(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	source := &countingRateSource{rate: &domain.Rate{
		FromCurrency: "USD",
		ToCurrency:   "SAR",
		Rate:         decimal.RequireFromString("3.7500"),
		EffectiveAt:  time.Now().UTC().Truncate(time.Second),
	}}
	cache := NewRateCache(client, source, time.Minute, zerolog.Nop())
	ctx := context.Background()

	first, err := cache.Latest(ctx, "USD", "SAR")
	if err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}
	second, err := cache.Latest(ctx, "USD", "SAR")
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}

	if source.calls != 1 {
		t.Fatalf("expected one source call, got %d", source.calls)
	}
	if !first.Rate.Equal(second.Rate) || first.FromCurrency != second.FromCurrency {
		t.Fatalf("cached rate differs from source rate: %+v vs %+v", first, second)
	}
}

func TestRateCache_SourceErrorNotCached(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	source := &countingRateSource{err: domain.ErrRateNotFound}
	cache := NewRateCache(client, source, time.Minute, zerolog.Nop())
	ctx := context.Background()

	if _, err := cache.Latest(ctx, "USD", "XXX"); err == nil {
		t.Fatal("expected error from source")
	}
	if _, err := cache.Latest(ctx, "USD", "XXX"); err == nil {
		t.Fatal("expected error from source on retry")
	}

	if source.calls != 2 {
		t.Fatalf("expected both lookups to reach the source, got %d calls", source.calls)
	}
}

func TestRateCache_UnparseableEntryRefetched(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	source := &countingRateSource{rate: &domain.Rate{
		FromCurrency: "EUR",
		ToCurrency:   "USD",
		Rate:         decimal.RequireFromString("1.0850"),
		EffectiveAt:  time.Now(),
	}}
	cache := NewRateCache(client, source, time.Minute, zerolog.Nop())
	ctx := context.Background()

	if err := client.Set(ctx, cache.key("EUR", "USD"), "{corrupt", time.Minute).Err(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	rate, err := cache.Latest(ctx, "EUR", "USD")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected refetch from source, got %d calls", source.calls)
	}
	if !rate.Rate.Equal(decimal.RequireFromString("1.0850")) {
		t.Fatalf("unexpected rate: %s", rate.Rate)
	}
}

func TestRateCache_Invalidate(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	source := &countingRateSource{rate: &domain.Rate{
		FromCurrency: "USD",
		ToCurrency:   "SAR",
		Rate:         decimal.RequireFromString("3.7500"),
		EffectiveAt:  time.Now(),
	}}
	cache := NewRateCache(client, source, time.Minute, zerolog.Nop())
	ctx := context.Background()

	if _, err := cache.Latest(ctx, "USD", "SAR"); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if err := cache.Invalidate(ctx, "USD", "SAR"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, err := cache.Latest(ctx, "USD", "SAR"); err != nil {
		t.Fatalf("lookup after invalidate failed: %v", err)
	}

	if source.calls != 2 {
		t.Fatalf("expected source refetch after invalidate, got %d calls", source.calls)
	}
}
