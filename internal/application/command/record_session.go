// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roster-hub/classroom-roster/internal/domain/game"
	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
	"github.com/roster-hub/classroom-roster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD SESSION COMMAND
// Stores a finished game and folds its answers into the per-student
// recognition counters. The two effects are independent: the session record
// is appended first, then the counters of every answered student on the class
// roster are incremented. Students missing from the roster are reported, never
// created.
// ══════════════════════════════════════════════════════════════════════════════

// RecordSessionCommand contains a finished game.
type RecordSessionCommand struct {
	// ClassName is the class the game was played for.
	ClassName string

	// Answers are the per-question outcomes in play order.
	Answers []stats.AnswerResult

	// PlayedAt is when the game finished (defaults to now if zero).
	PlayedAt time.Time
}

// Validate validates the command.
func (c RecordSessionCommand) Validate() error {
	if c.ClassName == "" {
		return shared.ErrEmptyClassName
	}
	if len(c.Answers) == 0 {
		return shared.ErrNoAnswers
	}
	if len(c.Answers) > game.QuestionsPerSession {
		return shared.ErrTooManyAnswers
	}
	return nil
}

// IncrementFailure is a counter update that did not apply.
type IncrementFailure struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

// RecordSessionResult contains the stored session and the counter outcome.
type RecordSessionResult struct {
	// SessionID is the ID of the stored record.
	SessionID string `json:"session_id"`

	// Record is the stored session.
	Record *stats.SessionRecord `json:"record"`

	// StudentsUpdated is how many students had their counters incremented.
	StudentsUpdated int `json:"students_updated"`

	// Failed lists students whose counters could not be incremented.
	Failed []IncrementFailure `json:"failed,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordSessionHandler handles the RecordSessionCommand.
type RecordSessionHandler struct {
	sessions stats.SessionSink
	roster   student.Repository
	counters student.CounterStore
	cache    stats.LeaderboardCache
	log      *logger.Logger

	concurrency int
	newID       func() string
	now         func() time.Time
}

// RecordSessionHandlerConfig contains configuration for the handler.
type RecordSessionHandlerConfig struct {
	// Concurrency bounds the parallel counter increments.
	Concurrency int
}

// DefaultRecordSessionHandlerConfig returns default configuration.
func DefaultRecordSessionHandlerConfig() RecordSessionHandlerConfig {
	return RecordSessionHandlerConfig{Concurrency: 4}
}

// NewRecordSessionHandler creates a new RecordSessionHandler.
// cache may be nil.
func NewRecordSessionHandler(
	sessions stats.SessionSink,
	roster student.Repository,
	counters student.CounterStore,
	cache stats.LeaderboardCache,
	log *logger.Logger,
	config RecordSessionHandlerConfig,
) *RecordSessionHandler {
	if config.Concurrency <= 0 {
		config = DefaultRecordSessionHandlerConfig()
	}
	if log == nil {
		log = logger.Discard()
	}

	return &RecordSessionHandler{
		sessions:    sessions,
		roster:      roster,
		counters:    counters,
		cache:       cache,
		log:         log.With(logger.Component("record_session")),
		concurrency: config.Concurrency,
		newID:       uuid.NewString,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the record session command.
//
// A failing roster read or append is returned unchanged and no counter is
// touched. Counter failures and unknown students do not fail the command; they
// are logged and listed in the result.
func (h *RecordSessionHandler) Handle(ctx context.Context, cmd RecordSessionCommand) (*RecordSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	session, err := game.Replay(cmd.ClassName, cmd.Answers)
	if err != nil {
		return nil, err
	}

	playedAt := cmd.PlayedAt
	if playedAt.IsZero() {
		playedAt = h.now()
	}
	record := session.Record(h.newID(), playedAt)

	enrolled, err := h.enrolledIDs(ctx, cmd.ClassName)
	if err != nil {
		return nil, err
	}

	if err := h.sessions.Append(ctx, record); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, h.log).With(
		logger.SessionID(record.ID),
		logger.ClassName(record.ClassName),
	)

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			log.Warn("leaderboard cache invalidation failed", logger.Err(err))
		}
	}

	deltas, order := CoalesceAnswers(record.Answers)

	known := make([]string, 0, len(order))
	var failed []IncrementFailure
	for _, id := range order {
		if _, ok := enrolled[id]; ok {
			known = append(known, id)
			continue
		}
		failed = append(failed, IncrementFailure{StudentID: id, Error: shared.ErrStudentNotFound.Error()})
	}
	failed = append(failed, h.applyIncrements(ctx, record.ClassName, deltas, known)...)
	for _, f := range failed {
		log.Warn("counter increment failed",
			logger.StudentID(f.StudentID),
			logger.String("error", f.Error),
		)
	}

	log.Info("session recorded",
		logger.Score(record.Score),
		logger.Int("accuracy", record.Accuracy),
		logger.Int("students", len(order)),
		logger.Int("failed", len(failed)),
	)

	return &RecordSessionResult{
		SessionID:       record.ID,
		Record:          record,
		StudentsUpdated: len(order) - len(failed),
		Failed:          failed,
	}, nil
}

// applyIncrements runs one Increment per student with bounded parallelism.
// Every student is attempted regardless of the others.
func (h *RecordSessionHandler) applyIncrements(
	ctx context.Context,
	className string,
	deltas map[string]student.Stats,
	order []string,
) []IncrementFailure {
	var (
		mu     sync.Mutex
		failed []IncrementFailure
	)

	var g errgroup.Group
	g.SetLimit(h.concurrency)

	for _, id := range order {
		delta := deltas[id]
		g.Go(func() error {
			if err := h.counters.Increment(ctx, className, id, delta); err != nil {
				mu.Lock()
				failed = append(failed, IncrementFailure{StudentID: id, Error: err.Error()})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return failed
}

// enrolledIDs returns the IDs on the roster of className.
func (h *RecordSessionHandler) enrolledIDs(ctx context.Context, className string) (map[string]struct{}, error) {
	list, err := h.roster.ListByClass(ctx, className)
	if err != nil {
		return nil, fmt.Errorf("record_session: list %s: %w", className, err)
	}
	ids := make(map[string]struct{}, len(list))
	for _, s := range list {
		ids[s.ID] = struct{}{}
	}
	return ids, nil
}

// CoalesceAnswers sums the counter delta of every answer per student. The
// returned order lists each student once, in first-answer order.
func CoalesceAnswers(answers []stats.AnswerResult) (map[string]student.Stats, []string) {
	deltas := make(map[string]student.Stats, len(answers))
	order := make([]string, 0, len(answers))
	for _, a := range answers {
		cur, seen := deltas[a.StudentID]
		if !seen {
			order = append(order, a.StudentID)
		}
		deltas[a.StudentID] = cur.Add(student.AttemptDelta(a.Correct))
	}
	return deltas, order
}

// String returns a short description for logs.
func (r *RecordSessionResult) String() string {
	return fmt.Sprintf("RecordSessionResult{Session: %s, Updated: %d, Failed: %d}", r.SessionID, r.StudentsUpdated, len(r.Failed))
}
