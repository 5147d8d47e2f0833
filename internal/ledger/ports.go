// Package ledger declares the ports the core consumes to reach a record
// store, plus the mutation event type shared by the AMQP feed and the audit
// trail.
package ledger

import (
	"context"
	"time"

	"moneymanager/internal/core"
)

// Ports for outbound store adapters. The conditional mutation forms are
// atomic: the editability check and the write happen as one operation
// against the backing store, with the cutoff recomputed from created_at so
// a stale flag can never let a late edit through.
type (
	TransactionWriter interface {
		// Insert persists a new transaction, assigning ID, CreatedAt and
		// Editable=true. The stored record is returned.
		Insert(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	TransactionReader interface {
		// Get returns core.ErrNotFound when no record has the given id.
		Get(ctx context.Context, id string) (core.Transaction, error)
		// List returns the records matching q, sorted by CreatedAt
		// descending. now anchors the relative period bounds.
		List(ctx context.Context, q core.Query, now time.Time) ([]core.Transaction, error)
	}

	TransactionMutator interface {
		// UpdateIfEditable merges patch into the record iff it still exists
		// and was created after core.EditCutoff(now). Returns
		// core.ErrNotFound or core.ErrLocked otherwise.
		UpdateIfEditable(ctx context.Context, id string, patch core.Patch, now time.Time) (core.Transaction, error)
		// DeleteIfEditable removes the record under the same condition.
		DeleteIfEditable(ctx context.Context, id string, now time.Time) error
	}

	// EditableSweeper denormalizes the derived editability into storage:
	// every record whose window has closed gets its flag cleared. The flag
	// is a cache, so a missed sweep is harmless.
	EditableSweeper interface {
		SweepEditable(ctx context.Context, now time.Time) (flipped int64, err error)
	}

	// EventRecorder appends mutation events to the audit trail.
	EventRecorder interface {
		RecordEvent(ctx context.Context, ev Event) error
		ListRecentEvents(ctx context.Context, limit int) ([]Event, error)
	}

	// Store is the full record-store surface the service and worker need.
	Store interface {
		TransactionWriter
		TransactionReader
		TransactionMutator
		EditableSweeper
		EventRecorder
		Close() error
	}
)

// Event actions mirror the service mutations plus the sweep transition.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionLocked  = "locked"
)

// Event is one entry of the mutation audit trail.
type Event struct {
	Action        string
	TransactionID string
	OccurredAt    time.Time
}
