package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/ec-orders/internal/apperr"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

var (
	errInvalidBody  = apperr.New(apperr.Validation, "invalid request body")
	errBodyTooLarge = apperr.New(apperr.Validation, "request body too large")
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Unauthorized:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidTransition, apperr.Validation:
		return http.StatusBadRequest
	case apperr.InsufficientStock, apperr.Conflict:
		return http.StatusConflict
	case apperr.TransactionFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Message: message, Data: data})
}

// respondError maps err to its status code. Internal causes are never exposed.
func respondError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.TransactionFailure {
		w.Header().Set("Retry-After", "1")
	}
	respondJSONError(w, apperr.PublicMessage(err), statusFor(kind))
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

// decodeJSON reads at most maxBodyBytes of the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return errInvalidBody
	}
	return nil
}
