package core

import "time"

// EditWindow is how long a transaction stays mutable after creation.
// Once the window closes the record is permanently read-only.
const EditWindow = 12 * time.Hour

// LockDeadline returns the instant the transaction becomes read-only.
func (t Transaction) LockDeadline() time.Time {
	return t.CreatedAt.Add(EditWindow)
}

// EditableAt reports whether the transaction may still be modified at the
// given instant. The stored Editable flag is only a denormalized cache: a
// stale true never grants access, because the elapsed time since CreatedAt
// is always rechecked. The transition is monotonic; once false it can never
// flip back.
//
// EditableAt is true for every instant in [CreatedAt, CreatedAt+EditWindow)
// and false from CreatedAt+EditWindow onwards.
func (t Transaction) EditableAt(now time.Time) bool {
	if !t.Editable {
		return false
	}
	return now.Sub(t.CreatedAt) < EditWindow
}

// EditCutoff returns the creation-time threshold for mutability at the given
// instant: only records created strictly after the cutoff may still be
// changed. Stores use this to make their conditional update/delete atomic.
func EditCutoff(now time.Time) time.Time {
	return now.Add(-EditWindow)
}
