package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"spendio/internal/core"
	"spendio/internal/faults"
)

const maxBodyBytes = 1 << 20 // 1MB

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type createSpendingRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Category    string           `json:"category" validate:"required,max=64"`
	Description string           `json:"description" validate:"max=500"`
	OccurredAt  time.Time        `json:"occurred_at" validate:"required"`
}

// updateSpendingRequest accepts identifier and owner fields but never
// applies them: identity is immutable and attempts to change it are
// ignored, not errored.
type updateSpendingRequest struct {
	ID          *string          `json:"id"`
	UserID      *string          `json:"user_id"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category" validate:"omitempty,max=64"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	OccurredAt  *time.Time       `json:"occurred_at"`
}

func (r updateSpendingRequest) params() core.UpdateSpendingParams {
	return core.UpdateSpendingParams{
		Amount:      r.Amount,
		Category:    r.Category,
		Description: r.Description,
		OccurredAt:  r.OccurredAt,
	}
}

// decodeAndValidate parses a JSON body into dst and runs its validate
// tags. Any problem, syntactic or semantic, is a ValidationFailed fault.
func decodeAndValidate(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return faults.Wrap(faults.ErrValidationFailed, "malformed request body", err)
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0]
			msg := fmt.Sprintf("invalid field %q (%s)", field.Field(), field.Tag())
			return faults.Wrap(faults.ErrValidationFailed, msg, err)
		}
		return faults.Wrap(faults.ErrValidationFailed, "invalid request", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// parsePage reads page/page_size query parameters with defaults. Values
// that do not parse fall back to the defaults; range checks stay with
// the store so the contract lives in one place.
func parsePage(query url.Values) core.Page {
	page := core.Page{Number: 1, Size: defaultPageSize}

	if v := query.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Number = n
		}
	}
	if v := query.Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Size = n
		}
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}
	return page
}
