package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"nil", nil, ""},
		{"insufficient balance", ErrInsufficientBalance, "INSUFFICIENT_BALANCE"},
		{"state transition", ErrInvalidStateTransition, "INVALID_STATE_TRANSITION"},
		{"conflict", ErrConflict, "CONFLICT"},
		{"duplicate", ErrDuplicateTransaction, "DUPLICATE"},
		{"stale rate", ErrStaleRate, "STALE_RATE"},
		{"limit", ErrLimitExceeded, "LIMIT_EXCEEDED"},
		{"not found", ErrBalanceNotFound, "NOT_FOUND"},
		{"inactive currency", ErrCurrencyInactive, "VALIDATION"},
		{"bad currency code", ErrInvalidCurrencyCode, "VALIDATION"},
		{"wrapped sentinel", fmt.Errorf("create: %w", ErrSameCurrency), "VALIDATION"},
		{"infrastructure failure", errors.New("dial tcp: connection refused"), "INTERNAL"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.code {
				t.Fatalf("code %q, want %q", got, tt.code)
			}
		})
	}
}
