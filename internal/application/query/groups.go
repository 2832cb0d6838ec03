package query

import (
	"context"
	"fmt"

	"github.com/roster-hub/classroom-roster/internal/domain/grouping"
	"github.com/roster-hub/classroom-roster/internal/domain/roster"
	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
	"github.com/roster-hub/classroom-roster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BUILD GROUPS QUERY
// Partitions a (possibly filtered) class roster. Groups are not stored.
// ══════════════════════════════════════════════════════════════════════════════

// BuildGroupsQuery contains the grouping parameters.
type BuildGroupsQuery struct {
	ClassName string

	// Strategy - "random", "heterogeneous" (or "balanced"), "interest".
	Strategy string

	// GroupSize - members per group (0 = handler default).
	GroupSize int

	// Text - optional roster filter applied before grouping.
	Text string
}

// BuildGroupsResult contains the groups.
type BuildGroupsResult struct {
	ClassName string            `json:"class_name"`
	Strategy  grouping.Strategy `json:"strategy"`
	GroupSize int               `json:"group_size"`
	Students  int               `json:"students"`
	Groups    []grouping.Group  `json:"groups"`
}

// BuildGroupsHandler handles BuildGroupsQuery.
type BuildGroupsHandler struct {
	students    student.Repository
	engine      *grouping.Engine
	defaultSize int
	log         *logger.Logger
}

// NewBuildGroupsHandler creates a new handler.
func NewBuildGroupsHandler(students student.Repository, engine *grouping.Engine, defaultSize int, log *logger.Logger) *BuildGroupsHandler {
	if engine == nil {
		engine = grouping.NewEngine()
	}
	if defaultSize <= 0 {
		defaultSize = 4
	}
	if log == nil {
		log = logger.Discard()
	}
	return &BuildGroupsHandler{
		students:    students,
		engine:      engine,
		defaultSize: defaultSize,
		log:         log.With(logger.Component("build_groups")),
	}
}

// Handle executes the query.
func (h *BuildGroupsHandler) Handle(ctx context.Context, q BuildGroupsQuery) (*BuildGroupsResult, error) {
	if q.ClassName == "" {
		return nil, shared.ErrEmptyClassName
	}

	strategy, err := grouping.ParseStrategy(q.Strategy)
	if err != nil {
		return nil, err
	}

	size := q.GroupSize
	if size == 0 {
		size = h.defaultSize
	}

	all, err := h.students.ListByClass(ctx, q.ClassName)
	if err != nil {
		return nil, fmt.Errorf("build_groups: list %s: %w", q.ClassName, err)
	}
	active := roster.Filter(all, q.Text)

	groups, err := h.engine.Group(strategy, active, size)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, h.log).Debug("groups built",
		logger.ClassName(q.ClassName),
		logger.Strategy(string(strategy)),
		logger.GroupSize(size),
		logger.Int("groups", len(groups)),
	)

	return &BuildGroupsResult{
		ClassName: q.ClassName,
		Strategy:  strategy,
		GroupSize: size,
		Students:  len(active),
		Groups:    groups,
	}, nil
}
