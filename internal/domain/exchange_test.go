package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateExchange(t *testing.T) {
	tests := []struct {
		name           string
		fromAmount     string
		rate           string
		commissionPct  string
		wantTo         string
		wantCommission string
		wantNetFrom    string
	}{
		{
			name:           "usd to try at 3.75 with 1 percent",
			fromAmount:     "100.00",
			rate:           "3.75",
			commissionPct:  "1",
			wantTo:         "375.00",
			wantCommission: "1.00",
			wantNetFrom:    "101.00",
		},
		{
			name:           "zero commission",
			fromAmount:     "250.00",
			rate:           "0.92",
			commissionPct:  "0",
			wantTo:         "230.00",
			wantCommission: "0.00",
			wantNetFrom:    "250.00",
		},
		{
			name:           "half even rounding down",
			fromAmount:     "100.00",
			rate:           "0.10125",
			commissionPct:  "0",
			wantTo:         "10.12", // 10.125 rounds to even
			wantCommission: "0.00",
			wantNetFrom:    "100.00",
		},
		{
			name:           "half even rounding up",
			fromAmount:     "100.00",
			rate:           "0.10135",
			commissionPct:  "0",
			wantTo:         "10.14", // 10.135 rounds to even
			wantCommission: "0.00",
			wantNetFrom:    "100.00",
		},
		{
			name:           "fractional commission",
			fromAmount:     "1000.00",
			rate:           "1.5",
			commissionPct:  "0.25",
			wantTo:         "1500.00",
			wantCommission: "2.50",
			wantNetFrom:    "1002.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from := decimal.RequireFromString(tt.fromAmount)
			rate := decimal.RequireFromString(tt.rate)
			pct := decimal.RequireFromString(tt.commissionPct)

			res := CalculateExchange(from, rate, pct, CurrencyDecimalPlaces)

			assert.True(t, res.ToAmount.Equal(decimal.RequireFromString(tt.wantTo)),
				"to amount: got %s want %s", res.ToAmount, tt.wantTo)
			assert.True(t, res.CommissionAmount.Equal(decimal.RequireFromString(tt.wantCommission)),
				"commission: got %s want %s", res.CommissionAmount, tt.wantCommission)
			assert.True(t, res.NetFromAmount.Equal(decimal.RequireFromString(tt.wantNetFrom)),
				"net from: got %s want %s", res.NetFromAmount, tt.wantNetFrom)
		})
	}
}

func TestEffectiveRate(t *testing.T) {
	rate := EffectiveRate(decimal.RequireFromString("100"), decimal.RequireFromString("375"))
	assert.True(t, rate.Equal(decimal.RequireFromString("3.75")), "got %s", rate)

	zero := EffectiveRate(decimal.Zero, decimal.RequireFromString("375"))
	assert.True(t, zero.IsZero())
}
