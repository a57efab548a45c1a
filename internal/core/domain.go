package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Spending is a single spending record owned by exactly one user.
	// ID and CreatedAt are assigned by the store at creation and are
	// immutable afterwards, as is UserID.
	Spending struct {
		ID          string
		UserID      string
		Amount      decimal.Decimal
		Category    string
		Description string
		OccurredAt  time.Time
		CreatedAt   time.Time
	}

	// UpdateSpendingParams carries the mutable fields of a spending.
	// A nil field means "leave unchanged".
	UpdateSpendingParams struct {
		Amount      *decimal.Decimal
		Category    *string
		Description *string
		OccurredAt  *time.Time
	}

	// Page is a 1-based pagination request.
	Page struct {
		Number int
		Size   int
	}

	// Session is the authenticated-principal state held by the remote
	// adapter between sign-in and sign-out. A session is either fully
	// populated or absent; partial sessions are invalid.
	Session struct {
		UserID        string
		Email         string
		EmailVerified bool
		AccessToken   string
		RefreshToken  string
		ExpiresAt     time.Time
	}
)

var (
	ErrMissingOwner      = errors.New("missing owner")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidOccurredAt = errors.New("invalid occurred-at date")
	ErrInvalidPage       = errors.New("page must be a positive integer")
	ErrInvalidPageSize   = errors.New("page size must be a positive integer")
)

const (
	maxCategoryLen    = 64
	maxDescriptionLen = 500
)

func (s Spending) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(s.Category) == "" {
		return ErrEmptyCategory
	}
	if len(s.Category) > maxCategoryLen {
		return errors.New("category too long (max 64 characters)")
	}
	if len(s.Description) > maxDescriptionLen {
		return errors.New("description too long (max 500 characters)")
	}
	if s.OccurredAt.IsZero() {
		return ErrInvalidOccurredAt
	}
	return nil
}

// IsEmpty reports whether the update would change nothing.
func (p UpdateSpendingParams) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil && p.OccurredAt == nil
}

func (p UpdateSpendingParams) Validate() error {
	if p.Category != nil {
		if strings.TrimSpace(*p.Category) == "" {
			return ErrEmptyCategory
		}
		if len(*p.Category) > maxCategoryLen {
			return errors.New("category too long (max 64 characters)")
		}
	}
	if p.Description != nil && len(*p.Description) > maxDescriptionLen {
		return errors.New("description too long (max 500 characters)")
	}
	if p.OccurredAt != nil && p.OccurredAt.IsZero() {
		return ErrInvalidOccurredAt
	}
	return nil
}

func (pg Page) Validate() error {
	if pg.Number < 1 {
		return ErrInvalidPage
	}
	if pg.Size < 1 {
		return ErrInvalidPageSize
	}
	return nil
}

// Offset returns the row offset for the page.
func (pg Page) Offset() int {
	return (pg.Number - 1) * pg.Size
}

// Valid reports whether the session is fully populated.
func (s Session) Valid() bool {
	return s.UserID != "" &&
		s.Email != "" &&
		s.AccessToken != "" &&
		s.RefreshToken != "" &&
		!s.ExpiresAt.IsZero()
}

// Expired reports whether the access token has passed its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
