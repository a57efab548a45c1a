package remote

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/badoux/checkmail"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendio/internal/core"
	"spendio/internal/faults"
	"spendio/internal/log"
)

// Backend password rule; rejected locally before any network call.
const minPasswordLen = 6

// refreshSkew renews the session slightly before the token actually
// expires so in-flight calls do not race the expiry.
const refreshSkew = 30 * time.Second

// Adapter is the remote service adapter. It owns the single mutable
// current-session reference; SignIn/SignUp replace it, SignOut clears it,
// and concurrent callers observe the same session.
type Adapter struct {
	client *Client

	mu      sync.RWMutex
	session *core.Session

	// serviceRole, when set, authorizes every call with a fixed key
	// instead of a user session. Used by the sync worker.
	serviceRole string
}

func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// NewServiceRoleAdapter returns an adapter that authenticates with the
// backend's service-role key and needs no signed-in session.
func NewServiceRoleAdapter(client *Client, serviceRoleKey string) *Adapter {
	return &Adapter{client: client, serviceRole: serviceRoleKey}
}

// SignUp registers a new account. The returned session is pending until
// the user confirms their email out-of-band; it only becomes the current
// session when the backend issues tokens immediately.
func (a *Adapter) SignUp(ctx context.Context, email, password string) (core.Session, error) {
	email = strings.TrimSpace(email)
	if err := checkmail.ValidateFormat(email); err != nil {
		return core.Session{}, faults.Wrap(faults.ErrValidationFailed, "invalid email address", err)
	}
	if len(password) < minPasswordLen {
		return core.Session{}, faults.New(faults.ErrValidationFailed, "password must be at least 6 characters")
	}

	resp, err := a.client.signUp(ctx, email, password)
	if err != nil {
		return core.Session{}, normalize(err)
	}

	if resp.AccessToken != "" {
		session := sessionFromAuth(&resp.authSession)
		a.setSession(session)
		return session, nil
	}

	// Confirmation pending: no tokens yet, nothing to hold on to.
	userID := resp.ID
	if userID == "" {
		userID = resp.User.ID
	}
	return core.Session{UserID: userID, Email: email}, nil
}

// SignIn authenticates with email and password and installs the
// resulting session as current.
func (a *Adapter) SignIn(ctx context.Context, email, password string) (core.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return core.Session{}, faults.New(faults.ErrInvalidCredentials, "email and password are required")
	}

	resp, err := a.client.signInWithPassword(ctx, email, password)
	if err != nil {
		return core.Session{}, normalize(err)
	}

	session := sessionFromAuth(resp)
	a.setSession(session)

	slog.InfoContext(ctx, "Signed in", log.FieldUserID, session.UserID)
	return session, nil
}

// SignOut clears the current session and revokes it upstream. Calling it
// with no active session is a no-op. Upstream revocation is best effort:
// the local session is gone either way and the token expires on its own.
func (a *Adapter) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	if session == nil {
		return nil
	}

	if err := a.client.signOut(ctx, session.AccessToken); err != nil {
		slog.WarnContext(ctx, "Upstream sign-out failed", log.FieldError, err, log.FieldUserID, session.UserID)
	} else {
		slog.InfoContext(ctx, "Signed out", log.FieldUserID, session.UserID)
	}
	return nil
}

// RequestPasswordReset asks the backend to send a reset email. It never
// reveals whether the address is registered: any backend verdict short of
// an outage reads as success.
func (a *Adapter) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := checkmail.ValidateFormat(email); err != nil {
		return faults.Wrap(faults.ErrValidationFailed, "invalid email address", err)
	}

	if err := a.client.recover(ctx, email); err != nil {
		return suppressAccountSignal(ctx, "password reset", err)
	}
	return nil
}

// ResendVerification re-sends the signup confirmation email, with the
// same disclosure-minimizing behavior as RequestPasswordReset.
func (a *Adapter) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := checkmail.ValidateFormat(email); err != nil {
		return faults.Wrap(faults.ErrValidationFailed, "invalid email address", err)
	}

	if err := a.client.resendSignup(ctx, email); err != nil {
		return suppressAccountSignal(ctx, "resend verification", err)
	}
	return nil
}

// Session returns a copy of the current session, if any.
func (a *Adapter) Session() (core.Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return core.Session{}, false
	}
	return *a.session, true
}

// CreateSpending inserts a new row for userID under the current identity.
func (a *Adapter) CreateSpending(ctx context.Context, userID string, amount decimal.Decimal, category, description string, occurredAt time.Time) (core.Spending, error) {
	sp := core.Spending{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Category:    strings.TrimSpace(category),
		Description: description,
		OccurredAt:  occurredAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := sp.Validate(); err != nil {
		return core.Spending{}, faults.Wrap(faults.ErrValidationFailed, err.Error(), err)
	}

	token, err := a.accessToken(ctx)
	if err != nil {
		return core.Spending{}, err
	}

	rows, err := a.client.insertRow(ctx, token, rowFromSpending(sp))
	if err != nil {
		return core.Spending{}, normalize(err)
	}
	if len(rows) == 0 {
		// Representation requested but not returned; trust what we sent.
		return sp, nil
	}
	return spendingFromRow(rows[0]), nil
}

// GetSpending returns the row matching (id, userID).
func (a *Adapter) GetSpending(ctx context.Context, userID, id string) (core.Spending, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return core.Spending{}, err
	}

	rows, err := a.client.selectRow(ctx, token, userID, id)
	if err != nil {
		return core.Spending{}, normalize(err)
	}
	if len(rows) == 0 {
		return core.Spending{}, faults.New(faults.ErrNotFound, "spending not found")
	}
	return spendingFromRow(rows[0]), nil
}

// ListSpendings returns one page of the owner's rows, newest first, and
// the owner's total row count.
func (a *Adapter) ListSpendings(ctx context.Context, userID string, page core.Page) ([]core.Spending, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, faults.Wrap(faults.ErrValidationFailed, err.Error(), err)
	}

	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, total, err := a.client.selectRows(ctx, token, userID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, normalize(err)
	}

	spendings := make([]core.Spending, len(rows))
	for i, row := range rows {
		spendings[i] = spendingFromRow(row)
	}
	return spendings, total, nil
}

// UpdateSpending applies the non-nil fields of params to the row matching
// (id, userID). Identifier and owner are immutable.
func (a *Adapter) UpdateSpending(ctx context.Context, userID, id string, params core.UpdateSpendingParams) (core.Spending, error) {
	if err := params.Validate(); err != nil {
		return core.Spending{}, faults.Wrap(faults.ErrValidationFailed, err.Error(), err)
	}
	if params.IsEmpty() {
		return a.GetSpending(ctx, userID, id)
	}

	token, err := a.accessToken(ctx)
	if err != nil {
		return core.Spending{}, err
	}

	patch := map[string]any{}
	if params.Amount != nil {
		patch["amount"] = params.Amount.String()
	}
	if params.Category != nil {
		patch["category"] = strings.TrimSpace(*params.Category)
	}
	if params.Description != nil {
		patch["description"] = *params.Description
	}
	if params.OccurredAt != nil {
		patch["occurred_at"] = params.OccurredAt.UTC().Format(time.RFC3339Nano)
	}

	rows, err := a.client.updateRow(ctx, token, userID, id, patch)
	if err != nil {
		return core.Spending{}, normalize(err)
	}
	if len(rows) == 0 {
		return core.Spending{}, faults.New(faults.ErrNotFound, "spending not found")
	}
	return spendingFromRow(rows[0]), nil
}

// DeleteSpending removes the row matching (id, userID).
func (a *Adapter) DeleteSpending(ctx context.Context, userID, id string) error {
	token, err := a.accessToken(ctx)
	if err != nil {
		return err
	}

	deleted, err := a.client.deleteRow(ctx, token, userID, id)
	if err != nil {
		return normalize(err)
	}
	if deleted == 0 {
		return faults.New(faults.ErrNotFound, "spending not found")
	}
	return nil
}

// Replicate upserts a locally cached spending into the remote table,
// keeping its identifier. Used by the sync worker to replay writes.
func (a *Adapter) Replicate(ctx context.Context, sp core.Spending) error {
	token, err := a.accessToken(ctx)
	if err != nil {
		return err
	}
	if _, err := a.client.upsertRow(ctx, token, rowFromSpending(sp)); err != nil {
		return normalize(err)
	}
	return nil
}

// Remove deletes a replicated row. A row that is already gone is not an
// error: delete replay must be idempotent.
func (a *Adapter) Remove(ctx context.Context, userID, id string) error {
	token, err := a.accessToken(ctx)
	if err != nil {
		return err
	}
	if _, err := a.client.deleteRow(ctx, token, userID, id); err != nil {
		return normalize(err)
	}
	return nil
}

func (a *Adapter) setSession(session core.Session) {
	a.mu.Lock()
	a.session = &session
	a.mu.Unlock()
}

// accessToken returns the bearer for the next call: the service-role key
// when configured, otherwise the current session's access token,
// refreshing it transparently when expired.
func (a *Adapter) accessToken(ctx context.Context) (string, error) {
	if a.serviceRole != "" {
		return a.serviceRole, nil
	}

	a.mu.RLock()
	session := a.session
	a.mu.RUnlock()

	if session == nil {
		return "", faults.New(faults.ErrInvalidCredentials, "no active session")
	}
	if !session.Expired(time.Now().Add(refreshSkew)) {
		return session.AccessToken, nil
	}

	return a.refresh(ctx, session.RefreshToken)
}

func (a *Adapter) refresh(ctx context.Context, refreshToken string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if a.session != nil && !a.session.Expired(time.Now().Add(refreshSkew)) {
		return a.session.AccessToken, nil
	}
	if a.session == nil {
		return "", faults.New(faults.ErrInvalidCredentials, "no active session")
	}

	resp, err := a.client.refreshSession(ctx, refreshToken)
	if err != nil {
		norm := normalize(err)
		if faults.Kind(norm) == faults.ErrInvalidCredentials {
			// Refresh token rejected: the session is gone for good.
			a.session = nil
			slog.WarnContext(ctx, "Session expired and refresh was rejected")
		}
		return "", norm
	}

	session := sessionFromAuth(resp)
	a.session = &session
	slog.InfoContext(ctx, "Session refreshed", log.FieldUserID, session.UserID)
	return session.AccessToken, nil
}

func sessionFromAuth(resp *authSession) core.Session {
	return core.Session{
		UserID:        resp.User.ID,
		Email:         resp.User.Email,
		EmailVerified: resp.User.EmailConfirmedAt != "",
		AccessToken:   resp.AccessToken,
		RefreshToken:  resp.RefreshToken,
		ExpiresAt:     tokenExpiry(resp.AccessToken, resp.ExpiresIn),
	}
}

// tokenExpiry prefers the backend's expires_in; when absent it falls back
// to the access token's own exp claim (decoded without verification, the
// backend already signed it), and finally to a conservative hour.
func tokenExpiry(accessToken string, expiresIn int64) time.Time {
	if expiresIn > 0 {
		return time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	if tok, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{}); err == nil {
		if exp, err := tok.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Now().Add(time.Hour)
}

// suppressAccountSignal downgrades backend verdicts that would reveal
// whether an account exists. Only outages surface to the caller.
func suppressAccountSignal(ctx context.Context, op string, err error) error {
	norm := normalize(err)
	if faults.Kind(norm) == faults.ErrServiceUnavailable {
		return norm
	}
	slog.DebugContext(ctx, "Suppressed backend verdict", log.FieldOperation, op, log.FieldError, err)
	return nil
}

func rowFromSpending(sp core.Spending) spendingRow {
	return spendingRow{
		ID:          sp.ID,
		UserID:      sp.UserID,
		Amount:      sp.Amount,
		Category:    sp.Category,
		Description: sp.Description,
		OccurredAt:  sp.OccurredAt.UTC(),
		CreatedAt:   sp.CreatedAt.UTC(),
	}
}

func spendingFromRow(row spendingRow) core.Spending {
	return core.Spending{
		ID:          row.ID,
		UserID:      row.UserID,
		Amount:      row.Amount,
		Category:    row.Category,
		Description: row.Description,
		OccurredAt:  row.OccurredAt.UTC(),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}
