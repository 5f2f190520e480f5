// Package worker consumes sync messages and mirrors transactions to a
// spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"contabile/internal/amqp"
	"contabile/internal/sheets"
	"contabile/internal/storage"
)

type SyncWorker struct {
	store    *storage.Store
	appender sheets.TransactionAppender
}

func NewSyncWorker(store *storage.Store, appender sheets.TransactionAppender) *SyncWorker {
	return &SyncWorker{store: store, appender: appender}
}

// Handle processes one sync message. The database is the source of
// truth: the message only carries IDs, the current record is always
// re-read before mirroring.
func (w *SyncWorker) Handle(ctx context.Context, msg *amqp.SyncMessage) error {
	switch msg.Type {
	case amqp.EventTransactionCreated:
		return w.mirrorTransaction(ctx, msg.OwnerID, msg.TransactionID)
	case amqp.EventImportCompleted:
		slog.InfoContext(ctx, "Import completed",
			"owner_id", msg.OwnerID, "batch_id", msg.BatchID,
			"created", msg.Created, "failed", msg.Failed)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown sync message type", "type", msg.Type)
		return nil
	}
}

func (w *SyncWorker) mirrorTransaction(ctx context.Context, ownerID, id int64) error {
	tx, err := w.store.GetTransaction(ctx, ownerID, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between publish and consume; nothing to mirror.
		slog.InfoContext(ctx, "Transaction gone, skipping mirror",
			"owner_id", ownerID, "transaction_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", id, err)
	}

	rowRef, err := w.appender.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"owner_id", ownerID, "transaction_id", id, "row_ref", rowRef)
	return nil
}
