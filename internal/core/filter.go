package core

import (
	"errors"
	"time"
)

const (
	WeeklyPeriod  Period = "weekly"
	MonthlyPeriod Period = "monthly"
	YearlyPeriod  Period = "yearly"

	// FilterAll is the wildcard value for division and category filters.
	FilterAll = "all"
)

// Period names a relative time window anchored at "now".
type Period string

// Known reports whether the period value is one the filter understands.
// Unknown values are treated as "no temporal constraint" for compatibility
// with the behaviour clients already depend on, so they are not an error.
func (p Period) Known() bool {
	switch p {
	case WeeklyPeriod, MonthlyPeriod, YearlyPeriod:
		return true
	}
	return false
}

var (
	ErrIncompleteRange = errors.New("startDate and endDate must be provided together")
	ErrInvalidDate     = errors.New("unparseable date")
)

// Query is the typed form of the list-endpoint filter parameters. All
// fields are optional and compose by logical AND. An explicit Start/End
// range takes precedence over Period entirely.
type Query struct {
	Division string
	Category string
	Period   Period
	Start    *time.Time
	End      *time.Time
}

func (q Query) Validate() error {
	if (q.Start == nil) != (q.End == nil) {
		return ErrIncompleteRange
	}
	return nil
}

// HasExplicitRange reports whether both range endpoints were supplied.
func (q Query) HasExplicitRange() bool {
	return q.Start != nil && q.End != nil
}

// Bounds resolves the temporal constraint at the given instant. The first
// return is the inclusive lower bound, the second the inclusive upper bound;
// either may be nil when unconstrained. Calendar boundaries (month, year)
// are computed in loc, which the caller fixes once from configuration.
func (q Query) Bounds(now time.Time, loc *time.Location) (start, end *time.Time) {
	if q.HasExplicitRange() {
		return q.Start, q.End
	}
	switch q.Period {
	case WeeklyPeriod:
		t := now.Add(-7 * 24 * time.Hour)
		return &t, nil
	case MonthlyPeriod:
		local := now.In(loc)
		t := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return &t, nil
	case YearlyPeriod:
		local := now.In(loc)
		t := time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return &t, nil
	}
	return nil, nil
}

// Matches evaluates the full predicate against a single transaction.
// Stores that can push the predicate down (SQL) use Bounds directly instead.
func (q Query) Matches(t Transaction, now time.Time, loc *time.Location) bool {
	if q.Division != "" && q.Division != FilterAll && string(t.Division) != q.Division {
		return false
	}
	if q.Category != "" && q.Category != FilterAll && t.Category != q.Category {
		return false
	}
	start, end := q.Bounds(now, loc)
	if start != nil && t.CreatedAt.Before(*start) {
		return false
	}
	if end != nil && t.CreatedAt.After(*end) {
		return false
	}
	return true
}
