package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), time.UTC)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func insertAged(t *testing.T, repo *SQLiteRepository, division core.Division, category string, age time.Duration) core.Transaction {
	t.Helper()
	tx, err := repo.Insert(context.Background(), core.Transaction{
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 1500},
		Description: "test entry",
		Category:    category,
		Division:    division,
		CreatedAt:   time.Now().Add(-age),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return tx
}

func TestInsertAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	stored, err := repo.Insert(ctx, core.Transaction{
		Kind:        core.Income,
		Amount:      core.Money{Cents: 250000},
		Description: "monthly salary",
		Category:    "salary",
		Division:    core.Personal,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("Insert assigned no id")
	}
	if !stored.Editable {
		t.Error("new record not editable")
	}

	got, err := repo.Get(ctx, stored.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != core.Income || got.Amount.Cents != 250000 || got.Category != "salary" {
		t.Errorf("Get = %+v", got)
	}
	// Millisecond persistence loses sub-ms precision only.
	if got.CreatedAt.Sub(stored.CreatedAt) > time.Millisecond {
		t.Errorf("CreatedAt drifted: %v vs %v", got.CreatedAt, stored.CreatedAt)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "absent")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	insertAged(t, repo, core.Office, "supplies", time.Hour)
	insertAged(t, repo, core.Personal, "food", 2*time.Hour)
	insertAged(t, repo, core.Personal, "food", 30*24*time.Hour)

	got, err := repo.List(ctx, core.Query{Division: string(core.Office)}, now)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Division != core.Office {
		t.Errorf("division filter returned %+v", got)
	}

	got, err = repo.List(ctx, core.Query{Category: "food", Period: core.WeeklyPeriod}, now)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("weekly food filter returned %d records, want 1", len(got))
	}

	// The all wildcard is a no-op filter.
	got, err = repo.List(ctx, core.Query{Division: core.FilterAll, Category: core.FilterAll}, now)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("wildcard filter returned %d records, want 3", len(got))
	}
}

func TestListSortsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	old := insertAged(t, repo, core.Personal, "food", 3*time.Hour)
	recent := insertAged(t, repo, core.Personal, "food", time.Hour)

	got, err := repo.List(context.Background(), core.Query{}, now)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != recent.ID || got[1].ID != old.ID {
		t.Errorf("order = %v, %v", got[0].ID, got[1].ID)
	}
}

func TestListExplicitRangeOverridesPeriod(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	inRange := insertAged(t, repo, core.Personal, "food", 10*24*time.Hour)
	insertAged(t, repo, core.Personal, "food", time.Hour)

	start := now.Add(-14 * 24 * time.Hour)
	end := now.Add(-5 * 24 * time.Hour)
	got, err := repo.List(ctx, core.Query{
		Period: core.WeeklyPeriod, // ignored in favor of the explicit range
		Start:  &start,
		End:    &end,
	}, now)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != inRange.ID {
		t.Errorf("explicit range returned %+v", got)
	}
}

func TestUpdateIfEditable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	fresh := insertAged(t, repo, core.Personal, "transport", time.Hour)

	desc := "airport taxi"
	amount := core.Money{Cents: 4200}
	updated, err := repo.UpdateIfEditable(ctx, fresh.ID, core.Patch{
		Description: &desc,
		Amount:      &amount,
	}, now)
	if err != nil {
		t.Fatalf("UpdateIfEditable: %v", err)
	}
	if updated.Description != desc || updated.Amount.Cents != 4200 {
		t.Errorf("updated = %+v", updated)
	}

	persisted, _ := repo.Get(ctx, fresh.ID)
	if persisted.Description != desc {
		t.Errorf("persisted description = %q", persisted.Description)
	}
}

func TestUpdateGates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	desc := "too late"

	_, err := repo.UpdateIfEditable(ctx, "absent", core.Patch{Description: &desc}, now)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("absent record: err = %v, want ErrNotFound", err)
	}

	aged := insertAged(t, repo, core.Personal, "misc", 13*time.Hour)
	_, err = repo.UpdateIfEditable(ctx, aged.ID, core.Patch{Description: &desc}, now)
	if !errors.Is(err, core.ErrLocked) {
		t.Errorf("aged record: err = %v, want ErrLocked", err)
	}

	persisted, _ := repo.Get(ctx, aged.ID)
	if persisted.Description == desc {
		t.Error("locked record was modified")
	}
}

func TestDeleteGates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	fresh := insertAged(t, repo, core.Personal, "misc", time.Hour)
	if err := repo.DeleteIfEditable(ctx, fresh.ID, now); err != nil {
		t.Fatalf("DeleteIfEditable: %v", err)
	}
	if err := repo.DeleteIfEditable(ctx, fresh.ID, now); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}

	aged := insertAged(t, repo, core.Personal, "misc", core.EditWindow+time.Hour)
	if err := repo.DeleteIfEditable(ctx, aged.ID, now); !errors.Is(err, core.ErrLocked) {
		t.Errorf("aged delete: err = %v, want ErrLocked", err)
	}
}

func TestClassifyMutationMiss(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := classifyMutationMiss(ctx, repo.db, "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("absent row: err = %v, want ErrNotFound", err)
	}

	existing := insertAged(t, repo, core.Office, "misc", time.Hour)
	if err := classifyMutationMiss(ctx, repo.db, existing.ID); !errors.Is(err, core.ErrLocked) {
		t.Errorf("existing row: err = %v, want ErrLocked", err)
	}
}

func TestSweepEditable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	expired := insertAged(t, repo, core.Personal, "misc", 13*time.Hour)
	fresh := insertAged(t, repo, core.Personal, "misc", time.Hour)

	flipped, err := repo.SweepEditable(ctx, now)
	if err != nil {
		t.Fatalf("SweepEditable: %v", err)
	}
	if flipped != 1 {
		t.Errorf("flipped = %d, want 1", flipped)
	}

	got, _ := repo.Get(ctx, expired.ID)
	if got.Editable {
		t.Error("expired record still flagged editable")
	}
	got, _ = repo.Get(ctx, fresh.ID)
	if !got.Editable {
		t.Error("fresh record lost its flag")
	}

	flipped, err = repo.SweepEditable(ctx, now)
	if err != nil {
		t.Fatalf("second SweepEditable: %v", err)
	}
	if flipped != 0 {
		t.Errorf("second sweep flipped %d records", flipped)
	}
}

func TestEventTrail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i, action := range []string{ledger.ActionCreated, ledger.ActionUpdated, ledger.ActionDeleted} {
		err := repo.RecordEvent(ctx, ledger.Event{
			Action:        action,
			TransactionID: "tx-1",
			OccurredAt:    base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordEvent(%s): %v", action, err)
		}
	}

	events, err := repo.ListRecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Action != ledger.ActionDeleted || events[1].Action != ledger.ActionUpdated {
		t.Errorf("order = %s, %s", events[0].Action, events[1].Action)
	}
}
