// Package remote implements the remote service adapter: a thin client for
// the hosted auth + table API (GoTrue-style auth endpoints, PostgREST-style
// row endpoints) plus the session-holding adapter built on top of it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultTimeout = 15 * time.Second

// Client speaks the backend's wire protocol. It holds no session state;
// the Adapter does.
type Client struct {
	baseURL string
	apiKey  string
	table   string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey, table string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("missing backend URL")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing backend API key")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("missing backend table name")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		table:   table,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}, nil
}

// APIError is a non-2xx response from the backend, decoded far enough to
// classify it. Its text is for logs, never for display.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend responded %d (code=%q): %s", e.Status, e.Code, e.Message)
}

type authUser struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	EmailConfirmedAt string `json:"email_confirmed_at"`
}

type authSession struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	RefreshToken string   `json:"refresh_token"`
	User         authUser `json:"user"`
}

// signUpResponse covers both backend shapes: a full session when email
// confirmation is disabled, or a bare user record when it is pending.
type signUpResponse struct {
	authSession
	ID    string `json:"id"`
	Email string `json:"email"`
}

type spendingRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (c *Client) signUp(ctx context.Context, email, password string) (*signUpResponse, error) {
	var out signUpResponse
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, nil, "",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) signInWithPassword(ctx context.Context, email, password string) (*authSession, error) {
	query := url.Values{"grant_type": {"password"}}
	var out authSession
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, nil, "",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) refreshSession(ctx context.Context, refreshToken string) (*authSession, error) {
	query := url.Values{"grant_type": {"refresh_token"}}
	var out authSession
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, nil, "",
		map[string]string{"refresh_token": refreshToken}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) signOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, accessToken, nil, nil)
	return err
}

func (c *Client) recover(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/recover", nil, nil, "",
		map[string]string{"email": email}, nil)
	return err
}

func (c *Client) resendSignup(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/resend", nil, nil, "",
		map[string]string{"type": "signup", "email": email}, nil)
	return err
}

func (c *Client) insertRow(ctx context.Context, token string, row spendingRow) ([]spendingRow, error) {
	headers := map[string]string{"Prefer": "return=representation"}
	var out []spendingRow
	_, err := c.do(ctx, http.MethodPost, c.tablePath(), nil, headers, token, row, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) upsertRow(ctx context.Context, token string, row spendingRow) ([]spendingRow, error) {
	headers := map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"}
	var out []spendingRow
	_, err := c.do(ctx, http.MethodPost, c.tablePath(), nil, headers, token, row, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) selectRow(ctx context.Context, token, userID, id string) ([]spendingRow, error) {
	query := url.Values{
		"select":  {"*"},
		"id":      {"eq." + id},
		"user_id": {"eq." + userID},
		"limit":   {"1"},
	}
	var out []spendingRow
	_, err := c.do(ctx, http.MethodGet, c.tablePath(), query, nil, token, nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// selectRows fetches one page of the owner's rows and the exact total row
// count, using ranged requests and the Content-Range response header.
func (c *Client) selectRows(ctx context.Context, token, userID string, limit, offset int) ([]spendingRow, int, error) {
	query := url.Values{
		"select":  {"*"},
		"user_id": {"eq." + userID},
		"order":   {"occurred_at.desc,id.desc"},
	}
	headers := map[string]string{
		"Range-Unit": "items",
		"Range":      fmt.Sprintf("%d-%d", offset, offset+limit-1),
		"Prefer":     "count=exact",
	}
	var out []spendingRow
	resp, err := c.do(ctx, http.MethodGet, c.tablePath(), query, headers, token, nil, &out)
	if err != nil {
		return nil, 0, err
	}
	total, err := parseContentRangeTotal(resp.Header.Get("Content-Range"))
	if err != nil {
		return nil, 0, fmt.Errorf("parse content range: %w", err)
	}
	return out, total, nil
}

func (c *Client) updateRow(ctx context.Context, token, userID, id string, patch map[string]any) ([]spendingRow, error) {
	query := url.Values{
		"id":      {"eq." + id},
		"user_id": {"eq." + userID},
	}
	headers := map[string]string{"Prefer": "return=representation"}
	var out []spendingRow
	_, err := c.do(ctx, http.MethodPatch, c.tablePath(), query, headers, token, patch, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// deleteRow returns the number of rows removed.
func (c *Client) deleteRow(ctx context.Context, token, userID, id string) (int, error) {
	query := url.Values{
		"id":      {"eq." + id},
		"user_id": {"eq." + userID},
	}
	headers := map[string]string{"Prefer": "return=representation"}
	var out []spendingRow
	_, err := c.do(ctx, http.MethodDelete, c.tablePath(), query, headers, token, nil, &out)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

func (c *Client) tablePath() string {
	return "/rest/v1/" + c.table
}

// do performs one backend call. token falls back to the API key for
// unauthenticated endpoints. out may be nil when no body is expected.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers map[string]string, token string, body, out any) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	bearer := token
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var payload struct {
		// Auth endpoint shapes
		ErrorCode string `json:"error_code"`
		Msg       string `json:"msg"`
		ErrorText string `json:"error"`
		ErrorDesc string `json:"error_description"`
		// Table endpoint shape
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &payload)

	apiErr := &APIError{Status: resp.StatusCode}
	apiErr.Code = firstNonEmpty(payload.ErrorCode, payload.Code)
	apiErr.Message = firstNonEmpty(payload.Msg, payload.Message, payload.ErrorDesc, payload.ErrorText)
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// parseContentRangeTotal extracts the total from a "0-9/42" or "*/0"
// style Content-Range header.
func parseContentRangeTotal(header string) (int, error) {
	if header == "" {
		return 0, errors.New("missing Content-Range header")
	}
	parts := strings.SplitN(header, "/", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed Content-Range %q", header)
	}
	if parts[1] == "*" {
		return 0, fmt.Errorf("unknown total in Content-Range %q", header)
	}
	total, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed Content-Range total %q", header)
	}
	return total, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
