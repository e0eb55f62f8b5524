package domain

import (
	"github.com/shopspring/decimal"
)

// Default precisions, overridable per currency.
const (
	CurrencyDecimalPlaces = 2
	RateDecimalPlaces     = 6
)

// ExchangeResult holds the amounts computed for an exchange at a snapshotted
// rate. NetFromAmount is what the source holder is debited in total.
type ExchangeResult struct {
	ToAmount         decimal.Decimal
	CommissionAmount decimal.Decimal
	NetFromAmount    decimal.Decimal
}

// CalculateExchange converts fromAmount at rate and computes commission from
// commissionPct (a percentage, e.g. 1 for 1%). Both results are rounded
// half-even to precision decimal places. The rate passed in is the snapshot
// recorded on the transaction; completed exchanges are never recomputed.
func CalculateExchange(fromAmount, rate, commissionPct decimal.Decimal, precision int32) ExchangeResult {
	toAmount := fromAmount.Mul(rate).RoundBank(precision)
	commission := fromAmount.Mul(commissionPct).Div(decimal.NewFromInt(100)).RoundBank(precision)

	return ExchangeResult{
		ToAmount:         toAmount,
		CommissionAmount: commission,
		NetFromAmount:    fromAmount.Add(commission),
	}
}

// EffectiveRate returns to/from including commission drag, for display.
func EffectiveRate(fromAmount, toAmount decimal.Decimal) decimal.Decimal {
	if fromAmount.IsZero() {
		return decimal.Zero
	}
	return toAmount.Div(fromAmount).RoundBank(RateDecimalPlaces)
}
