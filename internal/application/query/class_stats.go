package query

import (
	"context"
	"fmt"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
)

// RecentSessionsLimit is how many sessions the trend view shows.
const RecentSessionsLimit = 10

// ══════════════════════════════════════════════════════════════════════════════
// CLASS STATS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ClassStatsQuery selects a class.
type ClassStatsQuery struct {
	ClassName string
}

// ClassStatsResult contains the class summary and its latest sessions.
type ClassStatsResult struct {
	ClassName string                 `json:"class_name"`
	Stats     stats.ClassStats       `json:"stats"`
	Recent    []*stats.SessionRecord `json:"recent"`
}

// ClassStatsHandler handles ClassStatsQuery.
type ClassStatsHandler struct {
	sessions stats.SessionRepository
}

// NewClassStatsHandler creates a new handler.
func NewClassStatsHandler(sessions stats.SessionRepository) *ClassStatsHandler {
	return &ClassStatsHandler{sessions: sessions}
}

// Handle executes the query. A class without sessions yields zero stats.
func (h *ClassStatsHandler) Handle(ctx context.Context, q ClassStatsQuery) (*ClassStatsResult, error) {
	if q.ClassName == "" {
		return nil, shared.ErrEmptyClassName
	}

	records, err := h.sessions.ListByClass(ctx, q.ClassName, 0)
	if err != nil {
		return nil, fmt.Errorf("class_stats: list %s: %w", q.ClassName, err)
	}

	return &ClassStatsResult{
		ClassName: q.ClassName,
		Stats:     stats.ComputeClassStats(records),
		Recent:    stats.RecentSessions(records, RecentSessionsLimit),
	}, nil
}

// Recent returns the latest sessions of a class, newest first.
func (h *ClassStatsHandler) Recent(ctx context.Context, className string, limit int) ([]*stats.SessionRecord, error) {
	if className == "" {
		return nil, shared.ErrEmptyClassName
	}
	if limit <= 0 {
		limit = RecentSessionsLimit
	}

	records, err := h.sessions.ListByClass(ctx, className, limit)
	if err != nil {
		return nil, fmt.Errorf("class_stats: recent %s: %w", className, err)
	}
	return records, nil
}
