// Package services orchestrates spending operations across the local
// store and the sync queue: writes land locally first, then a sync
// message queues their replay against the remote backend.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"spendio/internal/amqp"
	"spendio/internal/core"
	"spendio/internal/log"
	"spendio/internal/storage"
)

// SpendingService wraps the local store with best-effort sync
// publishing. A failed publish never fails the local write; the worker's
// pending sweep picks the row up later.
type SpendingService struct {
	storage    *storage.Store
	amqpClient *amqp.Client
}

func NewSpendingService(storage *storage.Store, amqpClient *amqp.Client) *SpendingService {
	return &SpendingService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateSpending saves a spending locally and queues its replay.
func (s *SpendingService) CreateSpending(ctx context.Context, userID string, amount decimal.Decimal, category, description string, occurredAt time.Time) (core.Spending, error) {
	sp, err := s.storage.CreateSpending(ctx, userID, amount, category, description, occurredAt)
	if err != nil {
		return core.Spending{}, err
	}

	s.publishUpsert(ctx, sp.ID, sp.UserID)
	return sp, nil
}

// GetSpending reads from the local store.
func (s *SpendingService) GetSpending(ctx context.Context, userID, id string) (core.Spending, error) {
	return s.storage.GetSpending(ctx, userID, id)
}

// ListSpendings reads one page from the local store.
func (s *SpendingService) ListSpendings(ctx context.Context, userID string, page core.Page) ([]core.Spending, int, error) {
	return s.storage.ListSpendings(ctx, userID, page)
}

// UpdateSpending updates locally and queues a replay of the new state.
func (s *SpendingService) UpdateSpending(ctx context.Context, userID, id string, params core.UpdateSpendingParams) (core.Spending, error) {
	sp, err := s.storage.UpdateSpending(ctx, userID, id, params)
	if err != nil {
		return core.Spending{}, err
	}

	s.publishUpsert(ctx, sp.ID, sp.UserID)
	return sp, nil
}

// DeleteSpending deletes locally and queues a remote delete.
func (s *SpendingService) DeleteSpending(ctx context.Context, userID, id string) error {
	if err := s.storage.DeleteSpending(ctx, userID, id); err != nil {
		return err
	}

	if s.amqpClient == nil {
		return nil
	}
	if err := s.amqpClient.PublishDelete(ctx, id, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			log.FieldSpendingID, id, log.FieldError, err)
		// Local delete already happened; the remote row is orphaned
		// until a later replay reconciles it.
	}
	return nil
}

func (s *SpendingService) publishUpsert(ctx context.Context, spendingID, userID string) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.amqpClient.PublishUpsert(ctx, spendingID, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldSpendingID, spendingID, log.FieldError, err)
	}
}

// Close closes both the store and the AMQP connection.
func (s *SpendingService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close spending service: %v", errs)
	}

	return nil
}
