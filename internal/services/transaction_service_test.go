package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moneymanager/internal/amqp"
	"moneymanager/internal/core"
	"moneymanager/internal/ledger/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.TransactionEvent
	fail   bool
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Action
	}
	return out
}

func newService(pub EventPublisher) *TransactionService {
	return NewTransactionService(memory.New(time.UTC), pub)
}

func TestCreateAssignsAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(pub)
	ctx := context.Background()

	stored, err := svc.Create(ctx, core.Transaction{
		Kind:        core.Income,
		Amount:      core.Money{Cents: 100000},
		Description: "monthly pay",
		Category:    "salary",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if stored.ID == "" || !stored.Editable {
		t.Errorf("stored = %+v, want assigned ID and editable=true", stored)
	}
	if stored.Division != core.Personal {
		t.Errorf("Division = %q, want default personal", stored.Division)
	}

	got := pub.actions()
	if len(got) != 1 || got[0] != "created" {
		t.Errorf("published actions = %v, want [created]", got)
	}
	if !pub.events[0].LockAt.Equal(stored.LockDeadline()) {
		t.Errorf("event LockAt = %v, want %v", pub.events[0].LockAt, stored.LockDeadline())
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   core.Transaction
		wantErr error
	}{
		{
			name:    "missing kind",
			input:   core.Transaction{Amount: core.Money{Cents: 100}, Description: "x", Category: "y"},
			wantErr: core.ErrInvalidKind,
		},
		{
			name:    "negative amount",
			input:   core.Transaction{Kind: core.Expense, Amount: core.Money{Cents: -5}, Description: "x", Category: "y"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "missing description",
			input:   core.Transaction{Kind: core.Expense, Amount: core.Money{Cents: 100}, Category: "y"},
			wantErr: core.ErrEmptyDescription,
		},
		{
			name:    "missing category",
			input:   core.Transaction{Kind: core.Expense, Amount: core.Money{Cents: 100}, Description: "x"},
			wantErr: core.ErrEmptyCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSurvivesBrokerFailure(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	svc := newService(pub)

	stored, err := svc.Create(context.Background(), core.Transaction{
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 300},
		Description: "coffee",
		Category:    "food",
	})
	if err != nil {
		t.Fatalf("Create must not fail when the broker is down: %v", err)
	}
	if stored.ID == "" {
		t.Error("record was not stored")
	}
}

func TestUpdateGating(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(pub)
	ctx := context.Background()

	stored, err := svc.Create(ctx, core.Transaction{
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 300},
		Description: "lunch",
		Category:    "food",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	desc := "team lunch"
	updated, err := svc.Update(ctx, stored.ID, core.Patch{Description: &desc})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != "team lunch" {
		t.Errorf("Description = %q, want %q", updated.Description, desc)
	}

	if _, err := svc.Update(ctx, "absent", core.Patch{Description: &desc}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update absent = %v, want %v", err, core.ErrNotFound)
	}

	badKind := core.Kind("loan")
	if _, err := svc.Update(ctx, stored.ID, core.Patch{Kind: &badKind}); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("Update bad patch = %v, want %v", err, core.ErrInvalidKind)
	}

	got := pub.actions()
	if len(got) != 2 || got[1] != "updated" {
		t.Errorf("published actions = %v, want [created updated]", got)
	}
}

func TestDeletePublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(pub)
	ctx := context.Background()

	stored, _ := svc.Create(ctx, core.Transaction{
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 300},
		Description: "lunch",
		Category:    "food",
	})

	if err := svc.Delete(ctx, stored.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, stored.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete = %v, want %v", err, core.ErrNotFound)
	}

	got := pub.actions()
	if len(got) != 2 || got[1] != "deleted" {
		t.Errorf("published actions = %v, want [created deleted]", got)
	}
}

func TestListRejectsIncompleteRange(t *testing.T) {
	svc := newService(nil)
	start := time.Now()
	if _, err := svc.List(context.Background(), core.Query{Start: &start}); !errors.Is(err, core.ErrIncompleteRange) {
		t.Errorf("List = %v, want %v", err, core.ErrIncompleteRange)
	}
}

func TestSummarizeFiltersDivisionOnly(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	seed := []core.Transaction{
		{Kind: core.Income, Amount: core.Money{Cents: 100000}, Description: "pay", Category: "salary", Division: core.Personal},
		{Kind: core.Expense, Amount: core.Money{Cents: 30000}, Description: "lunch", Category: "food", Division: core.Office},
	}
	for _, tx := range seed {
		if _, err := svc.Create(ctx, tx); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := svc.Summarize(ctx, "", "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if all.TotalIncome.Cents != 100000 || all.TotalExpense.Cents != 30000 || all.NetBalance.Cents != 70000 {
		t.Errorf("summary = %+v", all)
	}
	if all.TransactionCount != 2 {
		t.Errorf("TransactionCount = %d, want 2", all.TransactionCount)
	}

	officeOnly, err := svc.Summarize(ctx, "office", "")
	if err != nil {
		t.Fatalf("Summarize office: %v", err)
	}
	if officeOnly.TransactionCount != 1 || officeOnly.TotalIncome.Cents != 0 {
		t.Errorf("office summary = %+v", officeOnly)
	}
}

func TestCloseWithNilComponents(t *testing.T) {
	svc := &TransactionService{}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close with nil components: %v", err)
	}
}
