package domain

import "errors"

var (
	// Balance errors
	ErrBalanceNotFound       = errors.New("balance not found")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrReservedExceedsTotal  = errors.New("reserved balance would exceed total balance")
	ErrReservedReleaseAmount = errors.New("release amount exceeds reserved balance")

	// Transaction errors
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInvalidStateTransition  = errors.New("invalid status transition")
	ErrCancellationReasonShort = errors.New("cancellation reason too short")
	ErrApprovalNotRequired     = errors.New("expense does not require approval")
	ErrAlreadyApproved         = errors.New("expense already approved")
	ErrNotCompleted            = errors.New("transfer must be completed before receipt")
	ErrAlreadyReceived         = errors.New("transfer already received")
	ErrSameCurrency            = errors.New("cannot exchange between same currencies")
	ErrApprovalRequired        = errors.New("expense requires approval")

	// Vault transfer errors
	ErrVaultTransferNotFound = errors.New("vault transfer not found")
	ErrInvalidDestination    = errors.New("transfer requires exactly one destination")

	// Validation errors
	ErrBranchInactive       = errors.New("branch is not active")
	ErrCurrencyInactive     = errors.New("currency is not active")
	ErrCustomerInactive     = errors.New("customer is not active")
	ErrRateNotFound         = errors.New("no exchange rate found for currency pair")
	ErrStaleRate            = errors.New("exchange rate is stale")
	ErrDuplicateTransaction = errors.New("possible duplicate transaction")
	ErrLimitExceeded        = errors.New("transaction limit exceeded")

	// Store errors
	ErrConflict = errors.New("storage conflict")
)

// ErrorCode returns the stable machine-readable code for a domain error.
// Callers pick HTTP status and retry policy from the code, never from
// message text.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientBalance):
		return "INSUFFICIENT_BALANCE"
	case errors.Is(err, ErrInvalidStateTransition),
		errors.Is(err, ErrAlreadyApproved),
		errors.Is(err, ErrAlreadyReceived),
		errors.Is(err, ErrNotCompleted):
		return "INVALID_STATE_TRANSITION"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrDuplicateTransaction):
		return "DUPLICATE"
	case errors.Is(err, ErrStaleRate):
		return "STALE_RATE"
	case errors.Is(err, ErrLimitExceeded):
		return "LIMIT_EXCEEDED"
	case errors.Is(err, ErrBalanceNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrVaultTransferNotFound),
		errors.Is(err, ErrRateNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrSameCurrency),
		errors.Is(err, ErrInvalidDestination),
		errors.Is(err, ErrCancellationReasonShort),
		errors.Is(err, ErrApprovalNotRequired),
		errors.Is(err, ErrApprovalRequired),
		errors.Is(err, ErrReservedExceedsTotal),
		errors.Is(err, ErrReservedReleaseAmount),
		errors.Is(err, ErrBranchInactive),
		errors.Is(err, ErrCurrencyInactive),
		errors.Is(err, ErrCustomerInactive),
		errors.Is(err, ErrInvalidCurrencyCode),
		errors.Is(err, ErrInvalidHolderID),
		errors.Is(err, ErrNotesTooLong),
		errors.Is(err, ErrReferenceTooLong):
		return "VALIDATION"
	default:
		// Unknown errors are infrastructure failures, not client mistakes.
		return "INTERNAL"
	}
}
