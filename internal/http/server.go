// Package http exposes the spending store and auth operations as a JSON
// API. It accepts and produces entity-shaped values and taxonomy errors
// only; no store or provider types cross this boundary.
package http

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"spendio/internal/backend"
	"spendio/internal/log"
)

// NewServer wires the API routes and returns a configured *http.Server.
// auth may be nil when the selected backend has no auth surface; auth
// routes then answer 503.
func NewServer(addr string, store backend.Backend, auth backend.Authenticator) *http.Server {
	h := newHandlers(store, auth)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)

	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.HandleFunc("POST /api/auth/password-reset", h.handlePasswordReset)
	mux.HandleFunc("POST /api/auth/resend-verification", h.handleResendVerification)
	mux.HandleFunc("GET /api/auth/session", h.handleSession)

	mux.HandleFunc("POST /api/spendings", h.handleCreateSpending)
	mux.HandleFunc("GET /api/spendings", h.handleListSpendings)
	mux.HandleFunc("GET /api/spendings/{id}", h.handleGetSpending)
	mux.HandleFunc("PATCH /api/spendings/{id}", h.handleUpdateSpending)
	mux.HandleFunc("DELETE /api/spendings/{id}", h.handleDeleteSpending)

	return &http.Server{
		Addr:    addr,
		Handler: requestLogger(mux),
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogger logs one line per request with a generated request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		requestID := generateRequestID()

		next.ServeHTTP(rec, r)

		slog.InfoContext(r.Context(), "Request handled",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rec.status,
			log.FieldDuration, time.Since(start).Milliseconds())
	})
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}
