// Package memory provides mutex-guarded in-process implementations of the
// roster, counter and session stores. It backs the service when PostgreSQL is
// disabled and is used by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// rosterKey identifies a student: IDs are unique only within a class.
type rosterKey struct {
	class string
	id    string
}

// StudentStore keeps students and their counters. All methods are safe for
// concurrent use and return copies.
type StudentStore struct {
	mu       sync.RWMutex
	students map[rosterKey]*student.Student
	order    []rosterKey
}

var (
	_ student.Repository   = (*StudentStore)(nil)
	_ student.CounterStore = (*StudentStore)(nil)
)

// NewStudentStore creates an empty store.
func NewStudentStore() *StudentStore {
	return &StudentStore{students: make(map[rosterKey]*student.Student)}
}

func (s *StudentStore) GetByID(ctx context.Context, className, id string) (*student.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[rosterKey{className, id}]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return st.Clone(), nil
}

// ListByClass returns the class roster in enrolment order.
func (s *StudentStore) ListByClass(ctx context.Context, className string) ([]*student.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*student.Student, 0)
	for _, key := range s.order {
		if key.class == className {
			out = append(out, s.students[key].Clone())
		}
	}
	return out, nil
}

// Save upserts roster fields. Counters of an existing student are kept.
func (s *StudentStore) Save(ctx context.Context, st *student.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := rosterKey{st.ClassName, st.ID}
	next := st.Clone()
	if cur, ok := s.students[key]; ok {
		next.Stats = cur.Stats
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = time.Now().UTC()
	} else {
		s.order = append(s.order, key)
	}
	s.students[key] = next
	return nil
}

// Increment adds delta under the write lock.
func (s *StudentStore) Increment(ctx context.Context, className, studentID string, delta student.Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[rosterKey{className, studentID}]
	if !ok {
		return shared.ErrStudentNotFound
	}
	st.Stats = st.Stats.Add(delta)
	return nil
}

func (s *StudentStore) Load(ctx context.Context, className string, studentIDs []string) (map[string]student.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]student.Stats, len(studentIDs))
	for _, id := range studentIDs {
		if st, ok := s.students[rosterKey{className, id}]; ok {
			out[id] = st.Stats
		}
	}
	return out, nil
}
