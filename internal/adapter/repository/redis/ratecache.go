package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// RateCache decorates a RateSource with a short-lived Redis cache. Cache
// failures fall through to the underlying source; a slow rate beats no rate.
type RateCache struct {
	client *redis.Client
	source usecase.RateSource
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewRateCache creates a new RateCache.
func NewRateCache(client *redis.Client, source usecase.RateSource, ttl time.Duration, logger zerolog.Logger) *RateCache {
	return &RateCache{
		client: client,
		source: source,
		ttl:    ttl,
		prefix: "rate:",
		logger: logger,
	}
}

func (c *RateCache) key(fromCurrency, toCurrency string) string {
	return c.prefix + fromCurrency + ":" + toCurrency
}

// Latest returns the cached rate for a pair, falling back to the source.
func (c *RateCache) Latest(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error) {
	key := c.key(fromCurrency, toCurrency)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rate domain.Rate
		if err := json.Unmarshal(data, &rate); err == nil {
			return &rate, nil
		}
		// Unparseable entry, refetch.
		_ = c.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		c.logger.Warn().Err(err).Msg("rate cache read failed")
	}

	rate, err := c.source.Latest(ctx, fromCurrency, toCurrency)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rate); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Msg("rate cache write failed")
		}
	}

	return rate, nil
}

// Invalidate drops the cached rate for a pair, e.g. after a rate import.
func (c *RateCache) Invalidate(ctx context.Context, fromCurrency, toCurrency string) error {
	return c.client.Del(ctx, c.key(fromCurrency, toCurrency)).Err()
}
