// Package storage implements the local store adapter: owner-scoped CRUD
// over a single-file embedded SQLite database. Every failure leaving this
// package is one of the faults kinds.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendio/internal/core"
	"spendio/internal/faults"
	"spendio/internal/log"

	_ "modernc.org/sqlite"
)

// Sync states for the local-first write pipeline.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite serializes writers; a single pooled connection keeps us from
	// holding concurrent writer handles on the same file.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateSpending persists a new spending for userID and returns it with
// the assigned identifier and creation timestamp.
func (s *Store) CreateSpending(ctx context.Context, userID string, amount decimal.Decimal, category, description string, occurredAt time.Time) (core.Spending, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spendings (id, user_id, amount, category, description, occurred_at, created_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.UserID, sp.Amount.String(), sp.Category, sp.Description,
		sp.OccurredAt.UnixNano(), sp.CreatedAt.UnixNano(), SyncPending,
	)
	if err != nil {
		return core.Spending{}, storeFailure("insert spending", err)
	}

	slog.InfoContext(ctx, "Spending saved to local store",
		log.FieldSpendingID, sp.ID,
		log.FieldUserID, sp.UserID,
		log.FieldCategory, sp.Category,
		log.FieldAmount, sp.Amount.String())

	return sp, nil
}

// GetSpending returns the spending matching (id, userID).
func (s *Store) GetSpending(ctx context.Context, userID, id string) (core.Spending, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, category, description, occurred_at, created_at
		FROM spendings
		WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	sp, err := scanSpending(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Spending{}, faults.Wrap(faults.ErrNotFound, "spending not found", err)
		}
		return core.Spending{}, storeFailure("select spending", err)
	}
	return sp, nil
}

// ListSpendings returns one page of the owner's spendings ordered by
// occurred-at descending (ties broken by identifier descending) and the
// owner's total row count. A page past the end yields an empty slice.
func (s *Store) ListSpendings(ctx context.Context, userID string, page core.Page) ([]core.Spending, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, faults.Wrap(faults.ErrValidationFailed, err.Error(), err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spendings WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, 0, storeFailure("count spendings", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, category, description, occurred_at, created_at
		FROM spendings
		WHERE user_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		userID, page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, storeFailure("select spendings", err)
	}
	defer rows.Close()

	spendings := []core.Spending{}
	for rows.Next() {
		sp, err := scanSpending(rows.Scan)
		if err != nil {
			return nil, 0, storeFailure("scan spending", err)
		}
		spendings = append(spendings, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeFailure("iterate spendings", err)
	}

	return spendings, total, nil
}

// UpdateSpending applies the non-nil fields of params to the spending
// matching (id, userID) and returns the updated row. Identifier and owner
// are immutable; params cannot express changing them.
func (s *Store) UpdateSpending(ctx context.Context, userID, id string, params core.UpdateSpendingParams) (core.Spending, error) {
	if err := params.Validate(); err != nil {
		return core.Spending{}, faults.Wrap(faults.ErrValidationFailed, err.Error(), err)
	}
	if params.IsEmpty() {
		return s.GetSpending(ctx, userID, id)
	}

	sets := make([]string, 0, 5)
	args := make([]any, 0, 7)
	if params.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, params.Amount.String())
	}
	if params.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, strings.TrimSpace(*params.Category))
	}
	if params.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *params.Description)
	}
	if params.OccurredAt != nil {
		sets = append(sets, "occurred_at = ?")
		args = append(args, params.OccurredAt.UTC().UnixNano())
	}
	sets = append(sets, "sync_status = ?")
	args = append(args, SyncPending)
	args = append(args, id, userID)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE spendings SET %s WHERE id = ? AND user_id = ?", strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return core.Spending{}, storeFailure("update spending", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Spending{}, storeFailure("update spending", err)
	}
	if affected == 0 {
		return core.Spending{}, faults.New(faults.ErrNotFound, "spending not found")
	}

	return s.GetSpending(ctx, userID, id)
}

// DeleteSpending removes the spending matching (id, userID).
func (s *Store) DeleteSpending(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM spendings WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return storeFailure("delete spending", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeFailure("delete spending", err)
	}
	if affected == 0 {
		return faults.New(faults.ErrNotFound, "spending not found")
	}

	slog.InfoContext(ctx, "Spending deleted from local store",
		log.FieldSpendingID, id, log.FieldUserID, userID)
	return nil
}

// GetPendingSync returns up to limit spendings that have not yet been
// replayed against the remote backend, oldest first.
func (s *Store) GetPendingSync(ctx context.Context, limit int) ([]core.Spending, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, category, description, occurred_at, created_at
		FROM spendings
		WHERE sync_status = ?
		ORDER BY created_at ASC
		LIMIT ?`,
		SyncPending, limit,
	)
	if err != nil {
		return nil, storeFailure("select pending spendings", err)
	}
	defer rows.Close()

	pending := []core.Spending{}
	for rows.Next() {
		sp, err := scanSpending(rows.Scan)
		if err != nil {
			return nil, storeFailure("scan pending spending", err)
		}
		pending = append(pending, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("iterate pending spendings", err)
	}
	return pending, nil
}

// MarkSynced records a successful remote replay for the spending.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE spendings SET sync_status = ?, synced_at = ? WHERE id = ?`,
		SyncDone, time.Now().UTC().UnixNano(), id)
	if err != nil {
		return storeFailure("mark spending synced", err)
	}
	return nil
}

// MarkSyncError records a failed remote replay for the spending.
func (s *Store) MarkSyncError(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE spendings SET sync_status = ? WHERE id = ?`,
		SyncError, id)
	if err != nil {
		return storeFailure("mark spending sync error", err)
	}
	return nil
}

func scanSpending(scan func(dest ...any) error) (core.Spending, error) {
	var (
		sp         core.Spending
		amount     string
		occurredAt int64
		createdAt  int64
	)
	if err := scan(&sp.ID, &sp.UserID, &amount, &sp.Category, &sp.Description, &occurredAt, &createdAt); err != nil {
		return core.Spending{}, err
	}
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Spending{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	sp.Amount = dec
	sp.OccurredAt = time.Unix(0, occurredAt).UTC()
	sp.CreatedAt = time.Unix(0, createdAt).UTC()
	return sp, nil
}

func storeFailure(op string, err error) error {
	return faults.Wrap(faults.ErrServiceUnavailable, "local store failure", fmt.Errorf("%s: %w", op, err))
}
