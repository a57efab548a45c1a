// Package worker replays locally cached writes against the remote
// backend: it consumes queued sync messages and periodically sweeps the
// local store for rows the queue missed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"spendio/internal/amqp"
	"spendio/internal/core"
	"spendio/internal/faults"
	"spendio/internal/log"
	"spendio/internal/storage"
)

// replaySweepConcurrency bounds parallel remote calls during a sweep.
const replaySweepConcurrency = 4

// Replicator is the slice of the remote adapter the worker needs.
type Replicator interface {
	Replicate(ctx context.Context, sp core.Spending) error
	Remove(ctx context.Context, userID, id string) error
}

// SyncWorker pushes local spendings to the remote backend.
type SyncWorker struct {
	storage   *storage.Store
	remote    Replicator
	batchSize int
}

func NewSyncWorker(storage *storage.Store, remote Replicator, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		remote:    remote,
		batchSize: batchSize,
	}
}

// HandleMessage processes a single sync message from the queue.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		log.FieldSpendingID, msg.SpendingID,
		log.FieldOperation, msg.Op)

	switch msg.Op {
	case amqp.OpDelete:
		if err := w.remote.Remove(ctx, msg.UserID, msg.SpendingID); err != nil {
			return fmt.Errorf("remove remote spending: %w", err)
		}
		return nil

	case amqp.OpUpsert:
		sp, err := w.storage.GetSpending(ctx, msg.UserID, msg.SpendingID)
		if err != nil {
			if errors.Is(err, faults.ErrNotFound) {
				// Row deleted locally after the message was queued; the
				// delete message that follows will reconcile remotely.
				slog.InfoContext(ctx, "Spending gone locally, skipping replay",
					log.FieldSpendingID, msg.SpendingID)
				return nil
			}
			return fmt.Errorf("load spending from storage: %w", err)
		}
		return w.replay(ctx, sp)

	default:
		// Validated at decode time; don't requeue the unexpected.
		slog.WarnContext(ctx, "Dropping message with unknown op", log.FieldOperation, msg.Op)
		return nil
	}
}

// ProcessPending replays any rows still marked pending. This is the
// backup path for lost queue messages, also run once at startup.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending spendings: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Replaying pending spendings", "count", len(pending))

	// One failed row must not cancel the replays of its siblings, so
	// the group carries no context of its own.
	var g errgroup.Group
	g.SetLimit(replaySweepConcurrency)
	for _, sp := range pending {
		g.Go(func() error {
			return w.replay(ctx, sp)
		})
	}
	return g.Wait()
}

// StartupSweep drains the full pending backlog in batches.
func (w *SyncWorker) StartupSweep(ctx context.Context) error {
	for {
		pending, err := w.storage.GetPendingSync(ctx, w.batchSize)
		if err != nil {
			return fmt.Errorf("get pending spendings: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}
		if err := w.ProcessPending(ctx); err != nil {
			return err
		}
		if len(pending) < w.batchSize {
			return nil
		}
	}
}

func (w *SyncWorker) replay(ctx context.Context, sp core.Spending) error {
	if err := w.remote.Replicate(ctx, sp); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, sp.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldSpendingID, sp.ID, log.FieldError, markErr)
		}
		return fmt.Errorf("replicate spending %s: %w", sp.ID, err)
	}

	if err := w.storage.MarkSynced(ctx, sp.ID); err != nil {
		return fmt.Errorf("mark spending synced: %w", err)
	}

	slog.InfoContext(ctx, "Spending replayed to remote backend", log.FieldSpendingID, sp.ID)
	return nil
}
