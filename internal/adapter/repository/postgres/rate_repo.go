package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fxledger/internal/domain"
)

// RateRepository implements usecase.RateSource over an append-only rate
// table. The newest row per pair wins; rows are never updated.
type RateRepository struct {
	pool *pgxpool.Pool
}

// NewRateRepository creates a new RateRepository.
func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

// Latest retrieves the newest rate for a pair.
func (r *RateRepository) Latest(ctx context.Context, fromCurrency, toCurrency string) (*domain.Rate, error) {
	query := `
		SELECT from_currency, to_currency, rate, effective_at
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2
		ORDER BY effective_at DESC
		LIMIT 1
	`

	var (
		rate        domain.Rate
		value       pgtype.Numeric
		effectiveAt pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, query, fromCurrency, toCurrency).
		Scan(&rate.FromCurrency, &rate.ToCurrency, &value, &effectiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrRateNotFound, fromCurrency, toCurrency)
		}

		return nil, err
	}

	rate.Rate = numericToDecimal(value)
	rate.EffectiveAt = effectiveAt.Time

	return &rate, nil
}

// Insert appends a new rate snapshot.
func (r *RateRepository) Insert(ctx context.Context, rate *domain.Rate) error {
	query := `
		INSERT INTO exchange_rates (from_currency, to_currency, rate, effective_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query,
		rate.FromCurrency,
		rate.ToCurrency,
		decimalToNumeric(rate.Rate),
		timeToPgTimestamptz(rate.EffectiveAt),
	)

	return err
}
