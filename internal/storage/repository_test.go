package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendio/internal/core"
	"spendio/internal/faults"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreate(t *testing.T, store *Store, userID, amount, category string, occurredAt time.Time) core.Spending {
	t.Helper()
	sp, err := store.CreateSpending(context.Background(), userID,
		decimal.RequireFromString(amount), category, "", occurredAt)
	if err != nil {
		t.Fatalf("CreateSpending: %v", err)
	}
	return sp
}

func TestCreateAndGetSpending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	occurredAt := time.Date(2025, 3, 15, 12, 30, 0, 0, time.UTC)
	created, err := store.CreateSpending(ctx, "user-1",
		decimal.RequireFromString("-42.50"), "groceries", "weekly shop", occurredAt)
	if err != nil {
		t.Fatalf("CreateSpending: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("expected assigned creation timestamp")
	}

	got, err := store.GetSpending(ctx, "user-1", created.ID)
	if err != nil {
		t.Fatalf("GetSpending: %v", err)
	}
	if got.ID != created.ID || got.UserID != "user-1" {
		t.Fatalf("got %+v, want id %s for user-1", got, created.ID)
	}
	if !got.Amount.Equal(decimal.RequireFromString("-42.50")) {
		t.Errorf("Amount = %s, want -42.50", got.Amount)
	}
	if got.Category != "groceries" || got.Description != "weekly shop" {
		t.Errorf("got category %q description %q", got.Category, got.Description)
	}
	if !got.OccurredAt.Equal(occurredAt) {
		t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, occurredAt)
	}
}

func TestCreateSpendingValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	occurredAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		userID     string
		category   string
		occurredAt time.Time
	}{
		{"missing owner", "", "food", occurredAt},
		{"blank category", "user-1", "   ", occurredAt},
		{"zero occurred-at", "user-1", "food", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.CreateSpending(ctx, tt.userID,
				decimal.NewFromInt(1), tt.category, "", tt.occurredAt)
			if !errors.Is(err, faults.ErrValidationFailed) {
				t.Fatalf("expected ErrValidationFailed, got %v", err)
			}
		})
	}
}

func TestGetSpendingNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSpending(context.Background(), "user-1", "no-such-id")
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSpendingOwnerIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sp := mustCreate(t, store, "alice", "10.00", "food", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	// Another owner asking for an existing row sees absence, not denial.
	_, err := store.GetSpending(ctx, "bob", sp.ID)
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestListSpendingsOrderingAndPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	// Five rows, oldest first by occurred-at.
	ids := make([]string, 5)
	for i := 0; i < 5; i++ {
		sp := mustCreate(t, store, "user-1", "1.00", "food", base.Add(time.Duration(i)*24*time.Hour))
		ids[i] = sp.ID
	}
	// A foreign owner's row must never leak in.
	mustCreate(t, store, "user-2", "99.00", "other", base)

	page1, total, err := store.ListSpendings(ctx, "user-1", core.Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("ListSpendings: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 len = %d, want 2", len(page1))
	}
	if page1[0].ID != ids[4] || page1[1].ID != ids[3] {
		t.Errorf("page 1 = [%s %s], want newest first [%s %s]",
			page1[0].ID, page1[1].ID, ids[4], ids[3])
	}

	page3, total, err := store.ListSpendings(ctx, "user-1", core.Page{Number: 3, Size: 2})
	if err != nil {
		t.Fatalf("ListSpendings page 3: %v", err)
	}
	if total != 5 || len(page3) != 1 {
		t.Fatalf("page 3: total %d len %d, want 5 and 1", total, len(page3))
	}
	if page3[0].ID != ids[0] {
		t.Errorf("page 3 = %s, want oldest %s", page3[0].ID, ids[0])
	}
}

func TestListSpendingsBeyondRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, store, "user-1", "1.00", "food", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	spendings, total, err := store.ListSpendings(ctx, "user-1", core.Page{Number: 10, Size: 20})
	if err != nil {
		t.Fatalf("ListSpendings: %v", err)
	}
	if len(spendings) != 0 {
		t.Errorf("expected empty page, got %d rows", len(spendings))
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestListSpendingsEmptyOwner(t *testing.T) {
	store := newTestStore(t)

	spendings, total, err := store.ListSpendings(context.Background(), "nobody", core.Page{Number: 1, Size: 20})
	if err != nil {
		t.Fatalf("ListSpendings: %v", err)
	}
	if len(spendings) != 0 || total != 0 {
		t.Fatalf("got %d rows total %d, want empty", len(spendings), total)
	}
}

func TestListSpendingsInvalidPage(t *testing.T) {
	store := newTestStore(t)

	for _, page := range []core.Page{
		{Number: 0, Size: 20},
		{Number: 1, Size: 0},
		{Number: -1, Size: -1},
	} {
		_, _, err := store.ListSpendings(context.Background(), "user-1", page)
		if !errors.Is(err, faults.ErrValidationFailed) {
			t.Fatalf("page %+v: expected ErrValidationFailed, got %v", page, err)
		}
	}
}

func TestListSpendingsTieBreakOnSameOccurredAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	when := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	a := mustCreate(t, store, "user-1", "1.00", "food", when)
	b := mustCreate(t, store, "user-1", "2.00", "food", when)

	first, _, err := store.ListSpendings(ctx, "user-1", core.Page{Number: 1, Size: 10})
	if err != nil {
		t.Fatalf("ListSpendings: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("len = %d, want 2", len(first))
	}
	// Identifier descending breaks the tie deterministically.
	want0, want1 := a.ID, b.ID
	if b.ID > a.ID {
		want0, want1 = b.ID, a.ID
	}
	if first[0].ID != want0 || first[1].ID != want1 {
		t.Errorf("order = [%s %s], want [%s %s]", first[0].ID, first[1].ID, want0, want1)
	}
}

func TestUpdateSpending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sp := mustCreate(t, store, "user-1", "10.00", "food", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	newAmount := decimal.RequireFromString("12.75")
	newCategory := "restaurants"
	updated, err := store.UpdateSpending(ctx, "user-1", sp.ID, core.UpdateSpendingParams{
		Amount:   &newAmount,
		Category: &newCategory,
	})
	if err != nil {
		t.Fatalf("UpdateSpending: %v", err)
	}
	if !updated.Amount.Equal(newAmount) {
		t.Errorf("Amount = %s, want 12.75", updated.Amount)
	}
	if updated.Category != "restaurants" {
		t.Errorf("Category = %q", updated.Category)
	}
	// Untouched fields survive, identity never changes.
	if updated.ID != sp.ID || updated.UserID != sp.UserID {
		t.Errorf("identity changed: %+v", updated)
	}
	if !updated.OccurredAt.Equal(sp.OccurredAt) {
		t.Errorf("OccurredAt changed: %v", updated.OccurredAt)
	}
	if !updated.CreatedAt.Equal(sp.CreatedAt) {
		t.Errorf("CreatedAt changed: %v", updated.CreatedAt)
	}
}

func TestUpdateSpendingEmptyParamsIsRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sp := mustCreate(t, store, "user-1", "10.00", "food", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	got, err := store.UpdateSpending(ctx, "user-1", sp.ID, core.UpdateSpendingParams{})
	if err != nil {
		t.Fatalf("UpdateSpending: %v", err)
	}
	if got.ID != sp.ID || !got.Amount.Equal(sp.Amount) {
		t.Errorf("empty update changed the row: %+v", got)
	}

	_, err = store.UpdateSpending(ctx, "user-1", "no-such-id", core.UpdateSpendingParams{})
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSpendingNotFoundAndForeignOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sp := mustCreate(t, store, "alice", "10.00", "food", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	amount := decimal.NewFromInt(1)

	_, err := store.UpdateSpending(ctx, "alice", "no-such-id", core.UpdateSpendingParams{Amount: &amount})
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = store.UpdateSpending(ctx, "bob", sp.ID, core.UpdateSpendingParams{Amount: &amount})
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestDeleteSpending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sp := mustCreate(t, store, "user-1", "10.00", "food", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	if err := store.DeleteSpending(ctx, "user-1", sp.ID); err != nil {
		t.Fatalf("DeleteSpending: %v", err)
	}
	if _, err := store.GetSpending(ctx, "user-1", sp.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected row gone, got %v", err)
	}

	// Deleting again reports absence.
	if err := store.DeleteSpending(ctx, "user-1", sp.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteSpendingForeignOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sp := mustCreate(t, store, "alice", "10.00", "food", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	if err := store.DeleteSpending(ctx, "bob", sp.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	// The row is still there for its owner.
	if _, err := store.GetSpending(ctx, "alice", sp.ID); err != nil {
		t.Fatalf("row should survive: %v", err)
	}
}

func TestSyncBookkeeping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sp := mustCreate(t, store, "user-1", "10.00", "food", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	pending, err := store.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != sp.ID {
		t.Fatalf("pending = %+v, want the new row", pending)
	}

	if err := store.MarkSynced(ctx, sp.ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	pending, err = store.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows after sync, got %d", len(pending))
	}

	// Any update makes the row pending again.
	amount := decimal.NewFromInt(5)
	if _, err := store.UpdateSpending(ctx, "user-1", sp.ID, core.UpdateSpendingParams{Amount: &amount}); err != nil {
		t.Fatalf("UpdateSpending: %v", err)
	}
	pending, err = store.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected row pending again after update, got %d", len(pending))
	}

	if err := store.MarkSyncError(ctx, sp.ID); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}
	pending, err = store.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("errored rows must not stay pending, got %d", len(pending))
	}
}

func TestGetPendingSyncRespectsLimit(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		mustCreate(t, store, "user-1", "1.00", "food", base.Add(time.Duration(i)*time.Hour))
	}

	pending, err := store.GetPendingSync(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("len = %d, want 3", len(pending))
	}
}

func TestAmountPrecisionSurvivesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, raw := range []string{"0.1", "-42.50", "12345.678", "0"} {
		sp := mustCreate(t, store, "user-1", raw, "precision", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		got, err := store.GetSpending(ctx, "user-1", sp.ID)
		if err != nil {
			t.Fatalf("GetSpending: %v", err)
		}
		if !got.Amount.Equal(decimal.RequireFromString(raw)) {
			t.Errorf("amount %s came back as %s", raw, got.Amount)
		}
	}
}
