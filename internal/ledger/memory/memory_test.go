package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
)

func newTx(kind core.Kind, cents int64, category string, division core.Division) core.Transaction {
	return core.Transaction{
		Kind:        kind,
		Amount:      core.Money{Cents: cents},
		Description: "test entry",
		Category:    category,
		Division:    division,
	}
}

func TestInsertAssignsIdentity(t *testing.T) {
	s := New(time.UTC)
	ctx := context.Background()

	before := time.Now()
	stored, err := s.Insert(ctx, newTx(core.Income, 1000, "salary", core.Personal))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	after := time.Now()

	if stored.ID == "" {
		t.Error("Insert must assign an ID")
	}
	if !stored.Editable {
		t.Error("new records must start editable")
	}
	if stored.CreatedAt.Before(before) || stored.CreatedAt.After(after) {
		t.Errorf("CreatedAt %v outside insert window [%v, %v]", stored.CreatedAt, before, after)
	}

	got, err := s.Get(ctx, stored.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != stored.ID || !got.Editable {
		t.Errorf("Get returned %+v, want stored record", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := New(time.UTC)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get = %v, want %v", err, core.ErrNotFound)
	}
}

func TestListSortedDescending(t *testing.T) {
	s := New(time.UTC)
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		tx := newTx(core.Expense, 100, "food", core.Personal)
		tx.CreatedAt = now.Add(-age)
		if _, err := s.Insert(ctx, tx); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := s.List(ctx, core.Query{}, now)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d records, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Fatalf("List not sorted descending at %d: %v then %v", i, got[i-1].CreatedAt, got[i].CreatedAt)
		}
	}
}

func TestUpdateIfEditableGate(t *testing.T) {
	s := New(time.UTC)
	ctx := context.Background()
	now := time.Now()

	fresh := newTx(core.Expense, 100, "food", core.Personal)
	fresh.CreatedAt = now.Add(-time.Hour)
	freshStored, _ := s.Insert(ctx, fresh)

	old := newTx(core.Expense, 100, "food", core.Personal)
	old.CreatedAt = now.Add(-13 * time.Hour)
	oldStored, _ := s.Insert(ctx, old)

	desc := "patched"
	got, err := s.UpdateIfEditable(ctx, freshStored.ID, core.Patch{Description: &desc}, now)
	if err != nil {
		t.Fatalf("UpdateIfEditable fresh: %v", err)
	}
	if got.Description != "patched" {
		t.Errorf("Description = %q, want patched", got.Description)
	}

	if _, err := s.UpdateIfEditable(ctx, oldStored.ID, core.Patch{Description: &desc}, now); !errors.Is(err, core.ErrLocked) {
		t.Errorf("UpdateIfEditable old = %v, want %v", err, core.ErrLocked)
	}
	unchanged, _ := s.Get(ctx, oldStored.ID)
	if unchanged.Description != "test entry" {
		t.Errorf("locked record was modified: %q", unchanged.Description)
	}

	if _, err := s.UpdateIfEditable(ctx, "absent", core.Patch{Description: &desc}, now); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateIfEditable absent = %v, want %v", err, core.ErrNotFound)
	}
}

func TestDeleteIfEditableGate(t *testing.T) {
	s := New(time.UTC)
	ctx := context.Background()
	now := time.Now()

	old := newTx(core.Expense, 100, "food", core.Personal)
	old.CreatedAt = now.Add(-core.EditWindow)
	oldStored, _ := s.Insert(ctx, old)

	if err := s.DeleteIfEditable(ctx, oldStored.ID, now); !errors.Is(err, core.ErrLocked) {
		t.Errorf("DeleteIfEditable at deadline = %v, want %v", err, core.ErrLocked)
	}

	fresh, _ := s.Insert(ctx, newTx(core.Income, 50, "salary", core.Personal))
	if err := s.DeleteIfEditable(ctx, fresh.ID, time.Now()); err != nil {
		t.Fatalf("DeleteIfEditable fresh: %v", err)
	}
	if _, err := s.Get(ctx, fresh.ID); !errors.Is(err, core.ErrNotFound) {
		t.Error("deleted record still present")
	}

	if err := s.DeleteIfEditable(ctx, "absent", now); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteIfEditable absent = %v, want %v", err, core.ErrNotFound)
	}
}

func TestSweepEditable(t *testing.T) {
	s := New(time.UTC)
	ctx := context.Background()
	now := time.Now()

	expired := newTx(core.Expense, 100, "food", core.Personal)
	expired.CreatedAt = now.Add(-13 * time.Hour)
	expiredStored, _ := s.Insert(ctx, expired)

	fresh, _ := s.Insert(ctx, newTx(core.Income, 50, "salary", core.Personal))

	flipped, err := s.SweepEditable(ctx, now)
	if err != nil {
		t.Fatalf("SweepEditable: %v", err)
	}
	if flipped != 1 {
		t.Errorf("flipped = %d, want 1", flipped)
	}

	got, _ := s.Get(ctx, expiredStored.ID)
	if got.Editable {
		t.Error("expired record still flagged editable after sweep")
	}
	stillFresh, _ := s.Get(ctx, fresh.ID)
	if !stillFresh.Editable {
		t.Error("fresh record lost its editable flag")
	}

	// Second sweep is a no-op.
	flipped, _ = s.SweepEditable(ctx, now)
	if flipped != 0 {
		t.Errorf("second sweep flipped %d, want 0", flipped)
	}
}

func TestEventTrail(t *testing.T) {
	s := New(time.UTC)
	ctx := context.Background()

	for _, action := range []string{ledger.ActionCreated, ledger.ActionUpdated, ledger.ActionDeleted} {
		if err := s.RecordEvent(ctx, ledger.Event{Action: action, TransactionID: "t1"}); err != nil {
			t.Fatalf("RecordEvent(%s): %v", action, err)
		}
	}

	events, err := s.ListRecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Action != ledger.ActionDeleted {
		t.Errorf("most recent event = %q, want %q", events[0].Action, ledger.ActionDeleted)
	}
}
