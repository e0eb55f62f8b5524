package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustParseDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func TestBalance_ValidateDelta(t *testing.T) {
	tests := []struct {
		name      string
		balance   int64
		reserved  int64
		delta     int64
		expectErr error
	}{
		{"credit", 100, 0, 50, nil},
		{"debit within balance", 100, 0, -100, nil},
		{"debit below zero", 100, 0, -150, ErrInsufficientBalance},
		{"debit leaves reserved uncovered", 100, 80, -50, ErrReservedExceedsTotal},
		{"debit exactly to reserved", 100, 50, -50, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Balance{
				Balance:         decimal.NewFromInt(tt.balance),
				ReservedBalance: decimal.NewFromInt(tt.reserved),
			}

			err := b.ValidateDelta(decimal.NewFromInt(tt.delta))
			if tt.expectErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.expectErr != nil && !errors.Is(err, tt.expectErr) {
				t.Fatalf("expected %v, got %v", tt.expectErr, err)
			}
		})
	}
}

func TestBalance_ReserveRelease(t *testing.T) {
	b := &Balance{
		Balance:         decimal.NewFromInt(100),
		ReservedBalance: decimal.NewFromInt(30),
	}

	if !b.Available().Equal(decimal.NewFromInt(70)) {
		t.Errorf("available = %s, want 70", b.Available())
	}

	if err := b.ValidateReserve(decimal.NewFromInt(70)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.ValidateReserve(decimal.NewFromInt(71)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := b.ValidateReserve(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if err := b.ValidateRelease(decimal.NewFromInt(30)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.ValidateRelease(decimal.NewFromInt(31)); !errors.Is(err, ErrReservedReleaseAmount) {
		t.Fatalf("expected ErrReservedReleaseAmount, got %v", err)
	}
}

func TestBalance_ThresholdWarnings(t *testing.T) {
	minT := decimal.NewFromInt(1000)
	maxT := decimal.NewFromInt(100000)

	b := &Balance{
		Balance:          decimal.NewFromInt(5000),
		MinimumThreshold: &minT,
		MaximumThreshold: &maxT,
	}

	if w := b.ThresholdWarnings(decimal.NewFromInt(5000)); len(w) != 0 {
		t.Errorf("expected no warnings, got %v", w)
	}

	w := b.ThresholdWarnings(decimal.NewFromInt(900))
	if len(w) != 1 || w[0].Kind != "below_minimum" {
		t.Errorf("expected below_minimum warning, got %v", w)
	}

	w = b.ThresholdWarnings(decimal.NewFromInt(200000))
	if len(w) != 1 || w[0].Kind != "above_maximum" {
		t.Errorf("expected above_maximum warning, got %v", w)
	}

	// No thresholds configured, no warnings.
	plain := &Balance{Balance: decimal.NewFromInt(5000)}
	if w := plain.ThresholdWarnings(decimal.NewFromInt(-1)); len(w) != 0 {
		t.Errorf("expected no warnings, got %v", w)
	}
}

func TestFormatNumber(t *testing.T) {
	date := mustParseDate(t, "2025-01-09")

	got := FormatNumber(TransactionNumberPrefix, date, 1)
	if got != "TRX-20250109-00001" {
		t.Errorf("FormatNumber = %q", got)
	}

	got = FormatNumber(VaultTransferNumberPrefix, date, 12345)
	if got != "VTR-20250109-12345" {
		t.Errorf("FormatNumber = %q", got)
	}

	seq, err := SequenceFromNumber("TRX-20250109-00042")
	if err != nil || seq != 42 {
		t.Errorf("SequenceFromNumber = %d, %v", seq, err)
	}

	if _, err := SequenceFromNumber("garbage"); err == nil {
		t.Error("expected error for malformed number")
	}
}
