package http

import (
	"net/http"

	"spendio/internal/backend"
	"spendio/internal/faults"
)

type handlers struct {
	store backend.Backend
	auth  backend.Authenticator
}

func newHandlers(store backend.Backend, auth backend.Authenticator) *handlers {
	return &handlers{store: store, auth: auth}
}

// resolveUserID picks the owner for spending operations. With an auth
// surface, the active session is the only accepted principal. Without
// one (local and memory backends) the caller names the owner via the
// X-User-ID header.
func (h *handlers) resolveUserID(r *http.Request) (string, error) {
	if h.auth != nil {
		session, ok := h.auth.Session()
		if !ok {
			return "", faults.New(faults.ErrInvalidCredentials, "not signed in")
		}
		return session.UserID, nil
	}
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return "", faults.New(faults.ErrValidationFailed, "missing X-User-ID header")
	}
	return userID, nil
}

// requireAuth answers 503 on auth routes when the selected backend has
// no auth surface.
func (h *handlers) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if h.auth == nil {
		writeError(w, r, faults.New(faults.ErrServiceUnavailable, "authentication is not available with this backend"))
		return false
	}
	return true
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	var req credentialsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	var req credentialsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	if err := h.auth.SignOut(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	var req emailRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if an account exists for this address, a reset email has been sent",
	})
}

func (h *handlers) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	var req emailRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.auth.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if an account exists for this address, a verification email has been sent",
	})
}

func (h *handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}
	session, ok := h.auth.Session()
	if !ok {
		writeError(w, r, faults.New(faults.ErrInvalidCredentials, "not signed in"))
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *handlers) handleCreateSpending(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolveUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createSpendingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	spending, err := h.store.CreateSpending(r.Context(), userID, *req.Amount, req.Category, req.Description, req.OccurredAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSpendingResponse(spending))
}

func (h *handlers) handleListSpendings(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolveUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page := parsePage(r.URL.Query())
	spendings, total, err := h.store.ListSpendings(r.Context(), userID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := listResponse{
		Spendings: make([]spendingResponse, 0, len(spendings)),
		Page:      page.Number,
		PageSize:  page.Size,
		Total:     total,
	}
	for _, sp := range spendings {
		resp.Spendings = append(resp.Spendings, toSpendingResponse(sp))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) handleGetSpending(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolveUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	spending, err := h.store.GetSpending(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpendingResponse(spending))
}

func (h *handlers) handleUpdateSpending(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolveUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateSpendingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	spending, err := h.store.UpdateSpending(r.Context(), userID, r.PathValue("id"), req.params())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpendingResponse(spending))
}

func (h *handlers) handleDeleteSpending(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolveUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.store.DeleteSpending(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
