package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/sheets"
	"bilancio/internal/storage"
)

// SyncWorker exports ledger movements from SQLite to an external sheet.
// AMQP messages drive the happy path; the pending-sync queue in SQLite
// is the safety net for lost messages and worker downtime.
type SyncWorker struct {
	storage   *storage.Repository
	sheets    sheets.TransactionWriter
	batchSize int
}

func NewSyncWorker(storage *storage.Repository, sheets sheets.TransactionWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	return w.export(ctx, msg.ID)
}

// ProcessPending exports transactions still flagged pending in SQLite.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		if err := w.export(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains a larger pending batch once at worker startup
// to recover from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		if err := w.export(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction during startup",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}

func (w *SyncWorker) export(ctx context.Context, id string) error {
	tx, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.sheets.Append(ctx, tx)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// the export itself worked, keep going
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", id,
		"sheets_ref", ref,
		"description", tx.Description,
		"amount_cents", tx.Amount.Cents)

	return nil
}
