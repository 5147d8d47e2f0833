// Package worker runs the background half of the edit-lock design: the
// editable flag stored on each transaction is only a cache of "less than 12
// hours since creation", and the sweeper keeps that cache honest. No timer
// is ever scheduled per record, so a restart loses nothing.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moneymanager/internal/amqp"
	"moneymanager/internal/ledger"
)

// LockSweeper denormalizes expired edit windows into the store and records
// the mutation event feed into the audit trail.
type LockSweeper struct {
	store    ledger.Store
	interval time.Duration
}

func NewLockSweeper(store ledger.Store, interval time.Duration) *LockSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &LockSweeper{
		store:    store,
		interval: interval,
	}
}

// Run sweeps once immediately, then on every tick until ctx ends. Sweep
// failures are logged and retried on the next tick; the mutation gate stays
// correct without the sweep, so nothing escalates.
func (w *LockSweeper) Run(ctx context.Context) error {
	if err := w.SweepOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sweep failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping edit-lock sweeper", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.SweepOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Edit-lock sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce clears the editable flag on every record whose window closed.
// Idempotent; flipping an already-cleared flag is a no-op in the store.
func (w *LockSweeper) SweepOnce(ctx context.Context) error {
	flipped, err := w.store.SweepEditable(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("sweep editable flags: %w", err)
	}
	if flipped > 0 {
		slog.InfoContext(ctx, "Edit-lock sweep completed", "flipped", flipped)
	}
	return nil
}

// HandleEvent records one mutation event into the audit trail. When a
// created event arrives with its lock deadline already in the past (queue
// backlog, worker downtime), an immediate sweep catches the flag up instead
// of waiting for the next tick.
func (w *LockSweeper) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	if err := w.store.RecordEvent(ctx, ledger.Event{
		Action:        ev.Action,
		TransactionID: ev.TransactionID,
		OccurredAt:    ev.OccurredAt,
	}); err != nil {
		return fmt.Errorf("record %s event: %w", ev.Action, err)
	}

	if ev.Action == ledger.ActionCreated && !ev.LockAt.IsZero() && !ev.LockAt.After(time.Now()) {
		slog.InfoContext(ctx, "Created event arrived past its lock deadline, sweeping",
			"transaction_id", ev.TransactionID,
			"lock_at", ev.LockAt)
		if err := w.SweepOnce(ctx); err != nil {
			return err
		}
		if err := w.store.RecordEvent(ctx, ledger.Event{
			Action:        ledger.ActionLocked,
			TransactionID: ev.TransactionID,
			OccurredAt:    time.Now(),
		}); err != nil {
			return fmt.Errorf("record locked event: %w", err)
		}
	}

	return nil
}
