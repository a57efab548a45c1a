// Package memstore is an in-memory spending store with the same contract
// as the SQLite-backed one. It backs tests and local development without
// touching disk.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendio/internal/core"
	"spendio/internal/faults"
)

type Store struct {
	mu        sync.RWMutex
	spendings map[string]core.Spending
}

func New() *Store {
	return &Store{spendings: make(map[string]core.Spending)}
}

func (s *Store) CreateSpending(_ context.Context, userID string, amount decimal.Decimal, category, description string, occurredAt time.Time) (core.Spending, error) {
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

	s.mu.Lock()
	s.spendings[sp.ID] = sp
	s.mu.Unlock()
	return sp, nil
}

func (s *Store) GetSpending(_ context.Context, userID, id string) (core.Spending, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.spendings[id]
	if !ok || sp.UserID != userID {
		return core.Spending{}, faults.New(faults.ErrNotFound, "spending not found")
	}
	return sp, nil
}

func (s *Store) ListSpendings(_ context.Context, userID string, page core.Page) ([]core.Spending, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, faults.Wrap(faults.ErrValidationFailed, err.Error(), err)
	}

	s.mu.RLock()
	owned := []core.Spending{}
	for _, sp := range s.spendings {
		if sp.UserID == userID {
			owned = append(owned, sp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].OccurredAt.Equal(owned[j].OccurredAt) {
			return owned[i].OccurredAt.After(owned[j].OccurredAt)
		}
		return owned[i].ID > owned[j].ID
	})

	total := len(owned)
	start := page.Offset()
	if start >= total {
		return []core.Spending{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return owned[start:end], total, nil
}

func (s *Store) UpdateSpending(_ context.Context, userID, id string, params core.UpdateSpendingParams) (core.Spending, error) {
	if err := params.Validate(); err != nil {
		return core.Spending{}, faults.Wrap(faults.ErrValidationFailed, err.Error(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spendings[id]
	if !ok || sp.UserID != userID {
		return core.Spending{}, faults.New(faults.ErrNotFound, "spending not found")
	}

	if params.Amount != nil {
		sp.Amount = *params.Amount
	}
	if params.Category != nil {
		sp.Category = strings.TrimSpace(*params.Category)
	}
	if params.Description != nil {
		sp.Description = *params.Description
	}
	if params.OccurredAt != nil {
		sp.OccurredAt = params.OccurredAt.UTC()
	}

	s.spendings[id] = sp
	return sp, nil
}

func (s *Store) DeleteSpending(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spendings[id]
	if !ok || sp.UserID != userID {
		return faults.New(faults.ErrNotFound, "spending not found")
	}
	delete(s.spendings, sp.ID)
	return nil
}
