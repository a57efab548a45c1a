package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"spendio/internal/core"
	"spendio/internal/faults"
	"spendio/internal/log"
)

type spendingResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	OccurredAt  string `json:"occurred_at"`
	CreatedAt   string `json:"created_at"`
}

type listResponse struct {
	Spendings []spendingResponse `json:"spendings"`
	Page      int                `json:"page"`
	PageSize  int                `json:"page_size"`
	Total     int                `json:"total"`
}

// sessionResponse deliberately omits the tokens; they never leave the
// adapter.
type sessionResponse struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toSpendingResponse(sp core.Spending) spendingResponse {
	return spendingResponse{
		ID:          sp.ID,
		UserID:      sp.UserID,
		Amount:      sp.Amount.String(),
		Category:    sp.Category,
		Description: sp.Description,
		OccurredAt:  sp.OccurredAt.Format(time.RFC3339Nano),
		CreatedAt:   sp.CreatedAt.Format(time.RFC3339Nano),
	}
}

func toSessionResponse(session core.Session) sessionResponse {
	resp := sessionResponse{
		UserID:        session.UserID,
		Email:         session.Email,
		EmailVerified: session.EmailVerified,
	}
	if !session.ExpiresAt.IsZero() {
		resp.ExpiresAt = session.ExpiresAt.Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", log.FieldError, err)
		}
	}
}

// writeError maps a taxonomy error to a status code and a fixed,
// non-technical message. The raw underlying error is logged here and
// never reaches the response body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := faults.Kind(err)

	var status int
	var message string
	switch kind {
	case faults.ErrValidationFailed:
		// Validation messages are ours, not the provider's; safe to show.
		status, message = http.StatusBadRequest, err.Error()
	case faults.ErrInvalidCredentials:
		status, message = http.StatusUnauthorized, "email or password incorrect"
	case faults.ErrEmailNotVerified:
		status, message = http.StatusForbidden, "email address not verified"
	case faults.ErrUserAlreadyExists:
		status, message = http.StatusConflict, "an account with this email already exists"
	case faults.ErrNotFound:
		status, message = http.StatusNotFound, "not found"
	case faults.ErrServiceUnavailable:
		status, message = http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		status, message = http.StatusInternalServerError, "internal error"
	}

	logArgs := []any{
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldStatusCode, status,
		log.FieldKind, kind,
		log.FieldError, err,
	}
	var fault *faults.Fault
	if errors.As(err, &fault) && fault.Cause() != nil {
		logArgs = append(logArgs, "cause", fault.Cause())
	}
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", logArgs...)
	} else {
		slog.WarnContext(r.Context(), "Request rejected", logArgs...)
	}

	writeJSON(w, status, errorResponse{Error: message})
}
