package memory

import (
	"context"
	"sync"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
)

// SessionStore keeps session records in append order.
type SessionStore struct {
	mu       sync.RWMutex
	sessions []*stats.SessionRecord
	ids      map[string]struct{}
}

var _ stats.SessionRepository = (*SessionStore)(nil)

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{ids: make(map[string]struct{})}
}

// Append stores a copy of record. A repeated ID is rejected.
func (s *SessionStore) Append(ctx context.Context, record *stats.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[record.ID]; dup {
		return shared.WrapError("stats", "Append", shared.ErrAlreadyExists, "session already stored", nil)
	}
	s.ids[record.ID] = struct{}{}
	s.sessions = append(s.sessions, cloneRecord(record))
	return nil
}

// ListByClass returns the sessions of a class, newest first.
func (s *SessionStore) ListByClass(ctx context.Context, className string, limit int) ([]*stats.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*stats.SessionRecord, 0)
	for _, r := range s.sessions {
		if r.ClassName == className {
			out = append(out, cloneRecord(r))
		}
	}
	s.mu.RUnlock()

	return stats.RecentSessions(out, limit), nil
}

// ListAll returns every session in append order.
func (s *SessionStore) ListAll(ctx context.Context) ([]*stats.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*stats.SessionRecord, len(s.sessions))
	for i, r := range s.sessions {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func cloneRecord(r *stats.SessionRecord) *stats.SessionRecord {
	c := *r
	c.Answers = append([]stats.AnswerResult(nil), r.Answers...)
	return &c
}
