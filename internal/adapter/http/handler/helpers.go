package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response carrying the domain error code so
// clients never parse message text.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := dto.ErrorResponse{Error: message}
	if err != nil {
		resp.Code = domain.ErrorCode(err)
		resp.Message = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// mapDomainError maps domain errors to HTTP status codes by their stable
// error code.
func mapDomainError(err error) int {
	switch domain.ErrorCode(err) {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "CONFLICT", "DUPLICATE", "INVALID_STATE_TRANSITION":
		return http.StatusConflict
	case "INSUFFICIENT_BALANCE", "LIMIT_EXCEEDED", "STALE_RATE", "VALIDATION":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// statusForCreate distinguishes malformed input from semantically rejected
// input. Structural validation failures read better as 400s.
func statusForCreate(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameCurrency),
		errors.Is(err, domain.ErrInvalidDestination),
		errors.Is(err, domain.ErrReferenceTooLong),
		errors.Is(err, domain.ErrNotesTooLong),
		errors.Is(err, domain.ErrInvalidCurrencyCode):
		return http.StatusBadRequest
	default:
		return mapDomainError(err)
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
