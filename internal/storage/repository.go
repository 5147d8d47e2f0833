package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
)

// SQLiteRepository is the durable record store. Timestamps are persisted as
// unix milliseconds so the conditional mutation gates can compare them in
// SQL, keeping check-then-act atomic.
type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
}

func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if loc == nil {
		loc = time.UTC
	}
	return &SQLiteRepository{db: db, loc: loc}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = "id, kind, amount_cents, description, category, division, created_at, editable"

func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Editable = true

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		t.ID, string(t.Kind), t.Amount.Cents, t.Description, t.Category,
		string(t.Division), t.CreatedAt.UnixMilli())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents,
		"category", t.Category,
		"division", t.Division)

	return t, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// List pushes the query predicate down to SQL. The relative period bounds
// are resolved once in Go (core.Query.Bounds) and passed as millisecond
// arguments.
func (r *SQLiteRepository) List(ctx context.Context, q core.Query, now time.Time) ([]core.Transaction, error) {
	var (
		clauses []string
		args    []any
	)
	if q.Division != "" && q.Division != core.FilterAll {
		clauses = append(clauses, "division = ?")
		args = append(args, q.Division)
	}
	if q.Category != "" && q.Category != core.FilterAll {
		clauses = append(clauses, "category = ?")
		args = append(args, q.Category)
	}
	start, end := q.Bounds(now, r.loc)
	if start != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, start.UnixMilli())
	}
	if end != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, end.UnixMilli())
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// UpdateIfEditable merges the patch inside a database transaction. The
// UPDATE itself re-checks created_at against the cutoff, so the gate holds
// even when the row changed between the read and the write.
func (r *SQLiteRepository) UpdateIfEditable(ctx context.Context, id string, patch core.Patch, now time.Time) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	current, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read transaction for update: %w", err)
	}
	if !current.EditableAt(now) {
		return core.Transaction{}, core.ErrLocked
	}

	merged := patch.Apply(current)
	cutoff := core.EditCutoff(now).UnixMilli()
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions
		 SET kind = ?, amount_cents = ?, description = ?, category = ?, division = ?
		 WHERE id = ? AND editable = 1 AND created_at > ?`,
		string(merged.Kind), merged.Amount.Cents, merged.Description,
		merged.Category, string(merged.Division), id, cutoff)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if affected == 0 {
		// Nothing matched the conditional update: the row was either
		// locked or deleted since the read above. Tell the caller which.
		return core.Transaction{}, classifyMutationMiss(ctx, tx, id)
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit update: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id)
	return merged, nil
}

func (r *SQLiteRepository) DeleteIfEditable(ctx context.Context, id string, now time.Time) error {
	cutoff := core.EditCutoff(now).UnixMilli()
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND editable = 1 AND created_at > ?`,
		id, cutoff)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected > 0 {
		slog.InfoContext(ctx, "Transaction deleted", "id", id)
		return nil
	}

	// Nothing matched the conditional delete: tell the caller why.
	return classifyMutationMiss(ctx, r.db, id)
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// classifyMutationMiss explains a conditional update or delete that touched
// no rows: the record is either gone or past its edit window.
func classifyMutationMiss(ctx context.Context, q rowQuerier, id string) error {
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("classify failed mutation: %w", err)
	}
	if exists == 0 {
		return core.ErrNotFound
	}
	return core.ErrLocked
}

// SweepEditable clears the denormalized flag on every record whose edit
// window has closed. Safe to run repeatedly; clearing the flag twice is
// harmless.
func (r *SQLiteRepository) SweepEditable(ctx context.Context, now time.Time) (int64, error) {
	cutoff := core.EditCutoff(now).UnixMilli()
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET editable = 0 WHERE editable = 1 AND created_at <= ?`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep editable flags: %w", err)
	}
	flipped, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep editable flags: %w", err)
	}
	if flipped > 0 {
		slog.InfoContext(ctx, "Edit-lock sweep flipped records", "count", flipped)
	}
	return flipped, nil
}

func (r *SQLiteRepository) RecordEvent(ctx context.Context, ev ledger.Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transaction_events (action, transaction_id, occurred_at) VALUES (?, ?, ?)`,
		ev.Action, ev.TransactionID, ev.OccurredAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListRecentEvents(ctx context.Context, limit int) ([]ledger.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT action, transaction_id, occurred_at FROM transaction_events
		 ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			ev ledger.Event
			ms int64
		)
		if err := rows.Scan(&ev.Action, &ev.TransactionID, &ms); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.OccurredAt = time.UnixMilli(ms)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		kind      string
		division  string
		createdMs int64
		editable  int
	)
	err := row.Scan(&t.ID, &kind, &t.Amount.Cents, &t.Description,
		&t.Category, &division, &createdMs, &editable)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	t.Division = core.Division(division)
	t.CreatedAt = time.UnixMilli(createdMs)
	t.Editable = editable != 0
	return t, nil
}
