package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bachat/internal/core"
	"bachat/internal/events"
	"bachat/internal/storage"
)

// LedgerAppender appends one exported expense row to the backup ledger.
type LedgerAppender interface {
	Append(ctx context.Context, row storage.ExportRow) (string, error)
}

// ExportWorker copies created expenses into the backup ledger. It is
// driven by AMQP events, with a periodic pending-export pass as a backup
// in case messages are lost.
type ExportWorker struct {
	repo      *storage.SQLiteRepository
	ledger    LedgerAppender
	batchSize int
}

func NewExportWorker(repo *storage.SQLiteRepository, ledger LedgerAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		repo:      repo,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single expense event from the queue.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *events.ExpenseEvent) error {
	switch event.Type {
	case events.TypeExpenseCreated:
		return w.exportExpense(ctx, event.ID)
	case events.TypeExpenseDeleted:
		// Ledger rows are append-only history; deletions are recorded
		// locally but never removed from the backup.
		slog.InfoContext(ctx, "Expense deleted, ledger row retained", "id", event.ID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown event type, dropping", "type", event.Type, "id", event.ID)
		return nil
	}
}

// ProcessPending exports any expenses that have not reached the ledger yet.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	ids, err := w.repo.GetPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(ids))

	for _, id := range ids {
		if err := w.exportExpense(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense", "id", id, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck exports a larger pending batch once at worker startup to
// recover from downtime or missed messages.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	ids, err := w.repo.GetPendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending exports for startup check: %w", err)
	}

	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...", "count", len(ids))

	exported := 0
	failed := 0
	for _, id := range ids {
		if err := w.exportExpense(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense during startup", "id", id, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(ids),
		"exported", exported,
		"errors", failed)

	return nil
}

func (w *ExportWorker) exportExpense(ctx context.Context, id int64) error {
	row, err := w.repo.GetExpenseForExport(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before the event was processed; nothing to export.
			slog.InfoContext(ctx, "Expense no longer exists, skipping export", "id", id)
			return nil
		}
		return fmt.Errorf("get expense for export: %w", err)
	}

	ref, err := w.ledger.Append(ctx, *row)
	if err != nil {
		if markErr := w.repo.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.repo.MarkExported(ctx, id); err != nil {
		// Export actually worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Exported expense to ledger",
		"id", id,
		"ledger_ref", ref,
		"category", row.Expense.Category,
		"amount", row.Expense.Amount)

	return nil
}
