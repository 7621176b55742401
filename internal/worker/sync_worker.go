// Package worker contains the background consumer that mirrors ledger data
// into the shared review spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tesoreria/internal/amqp"
	"tesoreria/internal/authz"
	"tesoreria/internal/core"
	"tesoreria/internal/ledger"
	"tesoreria/internal/report"
	"tesoreria/internal/sheets"
)

// ReportSyncWorker rebuilds the report grids for one owner-year whenever a
// ledger mutation is announced on the queue. The message carries no row
// data; the worker always re-queries the store so the mirror reflects the
// current state even when messages arrive out of order.
type ReportSyncWorker struct {
	store     ledger.Store
	publisher sheets.ReportPublisher

	mu   sync.Mutex
	seen map[syncKey]struct{}
}

type syncKey struct {
	userID string
	year   string
}

func NewReportSyncWorker(store ledger.Store, publisher sheets.ReportPublisher) *ReportSyncWorker {
	return &ReportSyncWorker{
		store:     store,
		publisher: publisher,
		seen:      make(map[syncKey]struct{}),
	}
}

// HandleSyncMessage processes one sync request from the queue.
func (w *ReportSyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ReportSyncMessage) error {
	slog.InfoContext(ctx, "Processing report sync message",
		"user_id", msg.UserID, "year", msg.Year)

	if err := w.syncYear(ctx, msg.UserID, msg.Year); err != nil {
		return fmt.Errorf("sync year %s for user %s: %w", msg.Year, msg.UserID, err)
	}

	w.remember(msg.UserID, msg.Year)
	return nil
}

// PeriodicResync republishes every owner-year this worker has synced since
// startup. It is a backup for messages lost while the broker or worker was
// down; a fresh worker has nothing to resync until messages arrive.
func (w *ReportSyncWorker) PeriodicResync(ctx context.Context) error {
	keys := w.knownKeys()
	if len(keys) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Running periodic resync", "pairs", len(keys))

	var failed int
	for _, key := range keys {
		if err := w.syncYear(ctx, key.userID, key.year); err != nil {
			slog.ErrorContext(ctx, "Periodic resync failed for pair",
				"user_id", key.userID, "year", key.year, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("periodic resync: %d of %d pairs failed", failed, len(keys))
	}
	return nil
}

// syncYear queries the owner's rows for the year, aggregates them and
// replaces that owner's published grids.
func (w *ReportSyncWorker) syncYear(ctx context.Context, userID, year string) error {
	filter := ledger.FilterSpec{
		DateFrom: year + "-01-01",
		DateTo:   year + "-12-31",
	}
	preds, err := filter.Predicates()
	if err != nil {
		return fmt.Errorf("build filter: %w", err)
	}

	rows, err := w.store.SelectTransactions(ctx, authz.OwnedBy(userID), preds, ledger.Ascending)
	if err != nil {
		return fmt.Errorf("query transactions: %w", err)
	}

	aggs, err := core.Aggregate(rows)
	if err != nil {
		return err
	}
	ingresos, egresos, err := core.SplitByType(rows)
	if err != nil {
		return err
	}

	grids := report.BuildSheets(ingresos, egresos, aggs, year)
	if err := w.publisher.Publish(ctx, userID, year, grids); err != nil {
		return fmt.Errorf("publish grids: %w", err)
	}

	slog.InfoContext(ctx, "Report grids mirrored",
		"user_id", userID, "year", year, "rows", len(rows))
	return nil
}

func (w *ReportSyncWorker) remember(userID, year string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen[syncKey{userID: userID, year: year}] = struct{}{}
}

func (w *ReportSyncWorker) knownKeys() []syncKey {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]syncKey, 0, len(w.seen))
	for k := range w.seen {
		keys = append(keys, k)
	}
	return keys
}
