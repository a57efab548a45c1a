package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendio/internal/core"
	"spendio/internal/faults"
)

func TestCreateAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	sp, err := store.CreateSpending(ctx, "user-1",
		decimal.RequireFromString("9.99"), "food", "lunch",
		time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CreateSpending: %v", err)
	}
	if sp.ID == "" {
		t.Fatalf("expected assigned id")
	}

	got, err := store.GetSpending(ctx, "user-1", sp.ID)
	if err != nil {
		t.Fatalf("GetSpending: %v", err)
	}
	if got.ID != sp.ID || got.Category != "food" {
		t.Fatalf("got %+v", got)
	}

	if _, err := store.GetSpending(ctx, "someone-else", sp.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	store := New()

	_, err := store.CreateSpending(context.Background(), "", decimal.NewFromInt(1), "food", "",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, faults.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestListOrderingAndPaging(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	ids := make([]string, 3)
	for i := 0; i < 3; i++ {
		sp, err := store.CreateSpending(ctx, "user-1", decimal.NewFromInt(int64(i)), "c", "",
			base.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("CreateSpending: %v", err)
		}
		ids[i] = sp.ID
	}

	page, total, err := store.ListSpendings(ctx, "user-1", core.Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("ListSpendings: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("total %d len %d, want 3 and 2", total, len(page))
	}
	if page[0].ID != ids[2] || page[1].ID != ids[1] {
		t.Errorf("expected newest first, got [%s %s]", page[0].ID, page[1].ID)
	}

	beyond, total, err := store.ListSpendings(ctx, "user-1", core.Page{Number: 9, Size: 2})
	if err != nil {
		t.Fatalf("ListSpendings: %v", err)
	}
	if len(beyond) != 0 || total != 3 {
		t.Fatalf("beyond-range page: len %d total %d", len(beyond), total)
	}

	if _, _, err := store.ListSpendings(ctx, "user-1", core.Page{Number: 0, Size: 2}); !errors.Is(err, faults.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	store := New()
	ctx := context.Background()

	sp, err := store.CreateSpending(ctx, "user-1", decimal.NewFromInt(10), "food", "",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CreateSpending: %v", err)
	}

	desc := "updated"
	updated, err := store.UpdateSpending(ctx, "user-1", sp.ID, core.UpdateSpendingParams{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateSpending: %v", err)
	}
	if updated.Description != "updated" || updated.ID != sp.ID {
		t.Fatalf("got %+v", updated)
	}

	if _, err := store.UpdateSpending(ctx, "user-1", "missing", core.UpdateSpendingParams{Description: &desc}); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.UpdateSpending(ctx, "intruder", sp.ID, core.UpdateSpendingParams{Description: &desc}); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	sp, err := store.CreateSpending(ctx, "user-1", decimal.NewFromInt(10), "food", "",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CreateSpending: %v", err)
	}

	if err := store.DeleteSpending(ctx, "intruder", sp.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := store.DeleteSpending(ctx, "user-1", sp.ID); err != nil {
		t.Fatalf("DeleteSpending: %v", err)
	}
	if err := store.DeleteSpending(ctx, "user-1", sp.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
