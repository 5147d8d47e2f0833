// Package services orchestrates transaction operations across the record
// store and the AMQP event feed, and owns the mutation gating contract.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moneymanager/internal/amqp"
	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
)

// EventPublisher is the slice of the AMQP client the service needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.TransactionEvent) error
	Close() error
}

// TransactionService coordinates the store, the edit-lock gate and the
// event feed. The broker is optional; a nil publisher just skips events.
type TransactionService struct {
	store  ledger.Store
	events EventPublisher
}

func NewTransactionService(store ledger.Store, events EventPublisher) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
	}
}

// Create validates and persists a new transaction. The store assigns ID and
// CreatedAt and starts the record editable; the edit window closes on its
// own 12 hours later.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Division == "" {
		t.Division = core.Personal
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	stored, err := s.store.Insert(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, ledger.ActionCreated, stored.ID, stored.LockDeadline())
	return stored, nil
}

// Update merges the patch iff the record exists and its edit window is
// still open at the moment of the request. The conditional store update is
// the authoritative gate; a stale editable flag never lets an edit through.
func (s *TransactionService) Update(ctx context.Context, id string, patch core.Patch) (core.Transaction, error) {
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateIfEditable(ctx, id, patch, time.Now())
	if err != nil {
		return core.Transaction{}, err
	}

	s.publish(ctx, ledger.ActionUpdated, updated.ID, updated.LockDeadline())
	return updated, nil
}

// Delete removes the record under the same gate as Update.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteIfEditable(ctx, id, time.Now()); err != nil {
		return err
	}

	s.publish(ctx, ledger.ActionDeleted, id, time.Time{})
	return nil
}

// List returns the filtered record set, most recent first.
func (s *TransactionService) List(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, q, time.Now())
}

// Summarize aggregates over the division/category-filtered set. Temporal
// filters are deliberately not applied here; the summary always covers the
// full history of the selection.
func (s *TransactionService) Summarize(ctx context.Context, division, category string) (core.Summary, error) {
	q := core.Query{Division: division, Category: category}
	txs, err := s.store.List(ctx, q, time.Now())
	if err != nil {
		return core.Summary{}, fmt.Errorf("load transactions for summary: %w", err)
	}
	return core.Summarize(txs), nil
}

// publish sends a mutation event to the feed. Broker failures are logged
// and swallowed: the mutation already committed, and the audit trail can
// tolerate gaps.
func (s *TransactionService) publish(ctx context.Context, action, id string, lockAt time.Time) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event feed not configured, skipping event",
			"action", action, "transaction_id", id)
		return
	}
	if err := s.events.PublishEvent(ctx, amqp.NewTransactionEvent(action, id, lockAt)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"action", action, "transaction_id", id, "error", err)
	}
}

// Close closes the store and, when configured, the event feed.
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
