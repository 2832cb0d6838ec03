package query

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roster-hub/classroom-roster/internal/domain/roster"
	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASS REPORT QUERY
// Everything the exported spreadsheet needs for one class.
// ══════════════════════════════════════════════════════════════════════════════

// ClassReport is the full snapshot of a class.
type ClassReport struct {
	ClassName   string
	Stats       stats.ClassStats
	Sessions    []*stats.SessionRecord
	Students    []*student.Student
	Attention   []stats.AttentionEntry
	GeneratedAt time.Time
}

// ClassReportHandler assembles a ClassReport.
type ClassReportHandler struct {
	students  student.Repository
	counters  student.CounterStore
	sessions  stats.SessionRepository
	threshold float64
	limit     int
}

// NewClassReportHandler creates a new handler. counters may be nil.
func NewClassReportHandler(
	students student.Repository,
	counters student.CounterStore,
	sessions stats.SessionRepository,
	threshold float64,
	limit int,
) *ClassReportHandler {
	return &ClassReportHandler{
		students:  students,
		counters:  counters,
		sessions:  sessions,
		threshold: threshold,
		limit:     limit,
	}
}

// Handle loads the roster and the sessions concurrently.
func (h *ClassReportHandler) Handle(ctx context.Context, className string) (*ClassReport, error) {
	if className == "" {
		return nil, shared.ErrEmptyClassName
	}

	var (
		list     []*student.Student
		sessions []*stats.SessionRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if list, err = h.students.ListByClass(gctx, className); err != nil {
			return fmt.Errorf("class_report: list students: %w", err)
		}
		if err = withCounters(gctx, h.counters, className, list); err != nil {
			return fmt.Errorf("class_report: load counters: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sessions, err = h.sessions.ListByClass(gctx, className, 0); err != nil {
			return fmt.Errorf("class_report: list sessions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ClassReport{
		ClassName:   className,
		Stats:       stats.ComputeClassStats(sessions),
		Sessions:    sessions,
		Students:    roster.SortBySeat(list),
		Attention:   stats.NeedsAttention(list, h.threshold, h.limit),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
