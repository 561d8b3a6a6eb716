package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rideway-co/marketplace-api/internal/app/directory"
	"github.com/rideway-co/marketplace-api/internal/app/identity"
	"github.com/rideway-co/marketplace-api/internal/app/ledger"
	"github.com/rideway-co/marketplace-api/internal/app/reputation"
	"github.com/rideway-co/marketplace-api/internal/app/reservations"
)

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Status string    `json:"status"`
	Error  errorBody `json:"error"`
}

// statusWord maps an HTTP status to the envelope's top-level status word.
// The internal-inconsistency case is keyed on the error code, not the
// status, so writeError special-cases it.
func statusWord(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusPaymentRequired:
		return "insufficient_funds"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "invalid_input"
	default:
		return "internal_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	word := statusWord(status)
	if code == "INTERNAL_INCONSISTENCY" {
		word = "internal_inconsistency"
	}
	env := errorEnvelope{
		Status: word,
		Error: errorBody{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetReqID(r.Context()),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// writeAppError renders an application-layer error from any of the service
// packages; everything else becomes an opaque 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ie *identity.Error
		de *directory.Error
		le *ledger.Error
		pe *reputation.Error
		re *reservations.Error
	)
	switch {
	case errors.As(err, &ie):
		writeError(w, r, ie.Status, ie.Code, ie.Message, ie.Details)
	case errors.As(err, &de):
		writeError(w, r, de.Status, de.Code, de.Message, de.Details)
	case errors.As(err, &le):
		writeError(w, r, le.Status, le.Code, le.Message, le.Details)
	case errors.As(err, &pe):
		writeError(w, r, pe.Status, pe.Code, pe.Message, pe.Details)
	case errors.As(err, &re):
		writeError(w, r, re.Status, re.Code, re.Message, re.Details)
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a request body into dst, reporting malformed input as a
// validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed json body", nil)
		return false
	}
	return true
}
