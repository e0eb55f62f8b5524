package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrencyCode = errors.New("invalid currency code")
	ErrInvalidHolderID     = errors.New("invalid holder identifier")
	ErrNotesTooLong        = errors.New("notes exceed maximum length")
	ErrReferenceTooLong    = errors.New("reference number exceeds maximum length")
)

const (
	MaxNotesLength     = 2000
	MaxReferenceLength = 100
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrencyCode validates an ISO 4217 style three-letter code.
func ValidateCurrencyCode(code string) error {
	if !currencyCodeRe.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrencyCode, code)
	}
	return nil
}

// ValidateHolderID rejects empty or whitespace-only holder identifiers.
func ValidateHolderID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidHolderID
	}
	return nil
}

// ValidateAmount rejects non-positive amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateNotes bounds free-text fields.
func ValidateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return fmt.Errorf("%w: %d > %d", ErrNotesTooLong, len(notes), MaxNotesLength)
	}
	return nil
}

// ValidateReference bounds the external reference field.
func ValidateReference(ref string) error {
	if len(ref) > MaxReferenceLength {
		return fmt.Errorf("%w: %d > %d", ErrReferenceTooLong, len(ref), MaxReferenceLength)
	}
	return nil
}

// ValidatePagination clamps pagination parameters.
func ValidatePagination(limit, offset int) (int, int) {
	const maxPageSize = 100
	const defaultPageSize = 20

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
