// Package memory provides a mutex-guarded in-memory record store. It backs
// local development (DATA_BACKEND=memory) and the package tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
)

type Store struct {
	mu     sync.Mutex
	loc    *time.Location
	items  map[string]core.Transaction
	events []ledger.Event
}

func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		loc:   loc,
		items: make(map[string]core.Transaction),
	}
}

func (s *Store) Insert(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Editable = true
	s.items[t.ID] = t
	return t, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.items[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) List(_ context.Context, q core.Query, now time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.items {
		if q.Matches(t, now, s.loc) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateIfEditable(_ context.Context, id string, patch core.Patch, now time.Time) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.items[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	if !t.EditableAt(now) {
		return core.Transaction{}, core.ErrLocked
	}
	t = patch.Apply(t)
	s.items[id] = t
	return t, nil
}

func (s *Store) DeleteIfEditable(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.items[id]
	if !ok {
		return core.ErrNotFound
	}
	if !t.EditableAt(now) {
		return core.ErrLocked
	}
	delete(s.items, id)
	return nil
}

func (s *Store) SweepEditable(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := core.EditCutoff(now)
	var flipped int64
	for id, t := range s.items {
		if t.Editable && !t.CreatedAt.After(cutoff) {
			t.Editable = false
			s.items[id] = t
			flipped++
		}
	}
	return flipped, nil
}

func (s *Store) RecordEvent(_ context.Context, ev ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *Store) ListRecentEvents(_ context.Context, limit int) ([]ledger.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ledger.Event, 0, n)
	for i := len(s.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
