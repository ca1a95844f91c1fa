// Package worker keeps the Google Sheets mirror in step with the database
// by reacting to expense change events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/ports"
)

// Exporter rewrites the mirror from source. Satisfied by *google.Exporter.
type Exporter interface {
	Export(ctx context.Context, source ports.ExpenseStreamer) (int, error)
}

// SyncWorker re-exports the whole sheet after change events. Bursts of
// events within the debounce window collapse into a single export.
type SyncWorker struct {
	source   ports.ExpenseStreamer
	exporter Exporter
	debounce time.Duration
	pending  chan struct{}
	syncs    atomic.Int64
}

// NewSyncWorker creates a worker. A debounce of zero exports right away.
func NewSyncWorker(source ports.ExpenseStreamer, exporter Exporter, debounce time.Duration) *SyncWorker {
	return &SyncWorker{
		source:   source,
		exporter: exporter,
		debounce: debounce,
		pending:  make(chan struct{}, 1),
	}
}

// HandleEvent schedules a sync. It never blocks; an already scheduled sync
// covers this event too.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.ExpenseEvent) error {
	slog.DebugContext(ctx, "Scheduling sheet sync",
		"type", event.Type,
		"id", event.ID,
		"month", event.Month)

	select {
	case w.pending <- struct{}{}:
	default:
	}
	return nil
}

// Run performs a startup sync, to recover from events missed while the
// worker was down, then syncs after each batch of events until ctx is done.
func (w *SyncWorker) Run(ctx context.Context) error {
	if err := w.sync(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.pending:
		}

		if w.debounce > 0 {
			timer := time.NewTimer(w.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			// Events that arrived while waiting are covered by this sync.
			select {
			case <-w.pending:
			default:
			}
		}

		if err := w.sync(ctx); err != nil {
			// Keep running; the next event retries the full export.
			slog.ErrorContext(ctx, "Sheet sync failed", "error", err)
		}
	}
}

// Syncs returns the number of completed exports.
func (w *SyncWorker) Syncs() int64 {
	return w.syncs.Load()
}

func (w *SyncWorker) sync(ctx context.Context) error {
	start := time.Now()
	n, err := w.exporter.Export(ctx, w.source)
	if err != nil {
		return err
	}
	w.syncs.Add(1)

	slog.InfoContext(ctx, "Sheet synced",
		"rows", n,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
