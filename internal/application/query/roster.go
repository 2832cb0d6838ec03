// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/roster-hub/classroom-roster/internal/domain/roster"
	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH ROSTER QUERY
// Returns the roster of a class sorted by seat, narrowed by a free-text query
// over name and seat number.
// ══════════════════════════════════════════════════════════════════════════════

// SearchRosterQuery contains the search parameters.
type SearchRosterQuery struct {
	// ClassName - the class to list.
	ClassName string

	// Text - substring matched against name and seat (empty = everyone).
	Text string
}

// Validate checks the query.
func (q SearchRosterQuery) Validate() error {
	if strings.TrimSpace(q.ClassName) == "" {
		return shared.ErrEmptyClassName
	}
	return nil
}

// SearchRosterResult contains the matching students.
type SearchRosterResult struct {
	ClassName string             `json:"class_name"`
	Query     string             `json:"query,omitempty"`
	Total     int                `json:"total"`
	Students  []*student.Student `json:"students"`
}

// SearchRosterHandler handles SearchRosterQuery.
type SearchRosterHandler struct {
	students student.Repository
	counters student.CounterStore
}

// NewSearchRosterHandler creates a new handler. counters may be nil when the
// roster repository already carries up-to-date counters.
func NewSearchRosterHandler(students student.Repository, counters student.CounterStore) *SearchRosterHandler {
	return &SearchRosterHandler{students: students, counters: counters}
}

// Handle executes the query.
func (h *SearchRosterHandler) Handle(ctx context.Context, q SearchRosterQuery) (*SearchRosterResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	all, err := h.students.ListByClass(ctx, q.ClassName)
	if err != nil {
		return nil, fmt.Errorf("search_roster: list %s: %w", q.ClassName, err)
	}
	if err := withCounters(ctx, h.counters, q.ClassName, all); err != nil {
		return nil, fmt.Errorf("search_roster: load counters: %w", err)
	}

	matched := roster.Filter(roster.SortBySeat(all), q.Text)

	return &SearchRosterResult{
		ClassName: q.ClassName,
		Query:     strings.TrimSpace(q.Text),
		Total:     len(matched),
		Students:  matched,
	}, nil
}

// withCounters overwrites the counters of every student of className with the
// values held by counters. Students absent from the counter store keep theirs.
func withCounters(ctx context.Context, counters student.CounterStore, className string, students []*student.Student) error {
	if counters == nil || len(students) == 0 {
		return nil
	}

	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}

	loaded, err := counters.Load(ctx, className, ids)
	if err != nil {
		return err
	}
	for _, s := range students {
		if st, ok := loaded[s.ID]; ok {
			s.Stats = st
		}
	}
	return nil
}
