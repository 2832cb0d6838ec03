package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository is the roster read model plus the roster-management writes.
// A student is identified by (class name, ID); IDs are unique only within a class.
type Repository interface {
	// GetByID returns a student of a class by ID.
	// Returns ErrStudentNotFound if the student does not exist.
	GetByID(ctx context.Context, className, id string) (*Student, error)

	// ListByClass returns the roster of a class in enrolment order.
	// An unknown class yields an empty slice, not an error.
	ListByClass(ctx context.Context, className string) ([]*Student, error)

	// Save inserts the student or updates name, seat, photo, tags and familiarity.
	// Counters are never overwritten by Save; they change only via CounterStore.
	Save(ctx context.Context, s *Student) error
}

// CounterStore applies atomic increments to a student's recognition counters.
//
// Implementations must add the delta on the store side (UPDATE ... SET x = x + n,
// HINCRBY, a locked in-memory add) so that concurrent or reordered calls
// converge to the same totals. Read-then-write is not allowed.
type CounterStore interface {
	// Increment adds delta to the counters of a student of className atomically.
	Increment(ctx context.Context, className, studentID string, delta Stats) error

	// Load returns the current counters for the given students of className.
	// Students without counters are absent from the map.
	Load(ctx context.Context, className string, studentIDs []string) (map[string]Stats, error)
}
