package backend

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spendio/internal/core"
)

// Ports for spending stores. Both the local store pipeline and the
// remote adapter satisfy all of them.
type (
	SpendingWriter interface {
		CreateSpending(ctx context.Context, userID string, amount decimal.Decimal, category, description string, occurredAt time.Time) (core.Spending, error)
	}

	SpendingReader interface {
		GetSpending(ctx context.Context, userID, id string) (core.Spending, error)
		// ListSpendings returns one page ordered by occurred-at
		// descending (ties by identifier descending) plus the owner's
		// total row count.
		ListSpendings(ctx context.Context, userID string, page core.Page) ([]core.Spending, int, error)
	}

	SpendingUpdater interface {
		UpdateSpending(ctx context.Context, userID, id string, params core.UpdateSpendingParams) (core.Spending, error)
	}

	SpendingDeleter interface {
		DeleteSpending(ctx context.Context, userID, id string) error
	}
)

// Backend is the unified spending store interface the delivery layer
// programs against.
type Backend interface {
	SpendingWriter
	SpendingReader
	SpendingUpdater
	SpendingDeleter
}

// CleanupFunc releases a backend's resources.
type CleanupFunc func() error

// Authenticator is the remote adapter's auth surface. Only the remote
// backend provides one.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (core.Session, error)
	SignIn(ctx context.Context, email, password string) (core.Session, error)
	SignOut(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResendVerification(ctx context.Context, email string) error
	Session() (core.Session, bool)
}

// Result contains the backend instance, the auth surface when the
// backend has one, and an optional cleanup function.
type Result struct {
	Backend Backend
	Auth    Authenticator
	Cleanup CleanupFunc
}

// BackendType selects a backend implementation.
type BackendType string

const (
	LocalBackend  BackendType = "local"
	RemoteBackend BackendType = "remote"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case LocalBackend, RemoteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
