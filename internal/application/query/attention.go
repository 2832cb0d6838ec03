package query

import (
	"context"
	"fmt"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// NEEDS ATTENTION QUERY
// Students the teacher keeps mixing up: practised, with low accuracy.
// ══════════════════════════════════════════════════════════════════════════════

// NeedsAttentionQuery selects a class.
type NeedsAttentionQuery struct {
	ClassName string

	// Limit - maximum entries (0 = handler default, capped at the default).
	Limit int
}

// NeedsAttentionResult contains the weakest students.
type NeedsAttentionResult struct {
	ClassName string                 `json:"class_name"`
	Threshold float64                `json:"threshold"`
	Students  []stats.AttentionEntry `json:"students"`
}

// NeedsAttentionHandler handles NeedsAttentionQuery.
type NeedsAttentionHandler struct {
	students  student.Repository
	counters  student.CounterStore
	threshold float64
	limit     int
}

// NewNeedsAttentionHandler creates a new handler. counters may be nil.
func NewNeedsAttentionHandler(students student.Repository, counters student.CounterStore, threshold float64, limit int) *NeedsAttentionHandler {
	if threshold <= 0 {
		threshold = stats.DefaultAttentionThreshold
	}
	if limit <= 0 {
		limit = stats.DefaultAttentionLimit
	}
	return &NeedsAttentionHandler{students: students, counters: counters, threshold: threshold, limit: limit}
}

// Handle executes the query.
func (h *NeedsAttentionHandler) Handle(ctx context.Context, q NeedsAttentionQuery) (*NeedsAttentionResult, error) {
	if q.ClassName == "" {
		return nil, shared.ErrEmptyClassName
	}
	// A requested limit may shrink the list but never exceed the configured cap.
	limit := h.limit
	if q.Limit > 0 {
		limit = min(q.Limit, h.limit)
	}

	roster, err := h.students.ListByClass(ctx, q.ClassName)
	if err != nil {
		return nil, fmt.Errorf("needs_attention: list %s: %w", q.ClassName, err)
	}
	if err := withCounters(ctx, h.counters, q.ClassName, roster); err != nil {
		return nil, fmt.Errorf("needs_attention: load counters: %w", err)
	}

	return &NeedsAttentionResult{
		ClassName: q.ClassName,
		Threshold: h.threshold,
		Students:  stats.NeedsAttention(roster, h.threshold, limit),
	}, nil
}
