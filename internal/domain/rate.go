package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate is an exchange rate snapshot for one currency pair.
type Rate struct {
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	EffectiveAt  time.Time
}

// Age returns how old the rate is at now.
func (r *Rate) Age(now time.Time) time.Duration {
	return now.Sub(r.EffectiveAt)
}

// IsStale reports whether the rate is older than the staleness window.
func (r *Rate) IsStale(now time.Time, window time.Duration) bool {
	return r.Age(now) > window
}
