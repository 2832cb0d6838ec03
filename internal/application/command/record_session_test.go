package command

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
	"github.com/roster-hub/classroom-roster/internal/infrastructure/persistence/memory"
)

type failingSink struct{ err error }

func (f failingSink) Append(context.Context, *stats.SessionRecord) error { return f.err }

// flakyCounters fails for the listed students and counts every call.
type flakyCounters struct {
	student.CounterStore
	fail  map[string]bool
	mu    sync.Mutex
	calls int
}

func (f *flakyCounters) Increment(ctx context.Context, className, id string, delta student.Stats) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail[id] {
		return errors.New("counter store offline")
	}
	return f.CounterStore.Increment(ctx, className, id, delta)
}

// openCounters accepts any student, like a Redis hash per key would.
type openCounters struct {
	mu   sync.Mutex
	seen map[string]student.Stats
}

func (o *openCounters) Increment(_ context.Context, className, id string, delta student.Stats) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = make(map[string]student.Stats)
	}
	key := className + "/" + id
	o.seen[key] = o.seen[key].Add(delta)
	return nil
}

func (o *openCounters) Load(context.Context, string, []string) (map[string]student.Stats, error) {
	return nil, nil
}

type brokenRoster struct {
	student.Repository
	err error
}

func (b brokenRoster) ListByClass(context.Context, string) ([]*student.Student, error) {
	return nil, b.err
}

type spyCache struct {
	stats.LeaderboardCache
	invalidated int
}

func (s *spyCache) Invalidate(context.Context) error {
	s.invalidated++
	return nil
}

func seedRoster(t *testing.T, ids ...string) *memory.StudentStore {
	t.Helper()
	store := memory.NewStudentStore()
	enrol(t, store, "3A", ids...)
	return store
}

func enrol(t *testing.T, store *memory.StudentStore, className string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		s, err := student.NewStudent(student.NewStudentParams{ID: id, ClassName: className, Name: "N" + id})
		require.NoError(t, err)
		require.NoError(t, store.Save(context.Background(), s))
	}
}

func newHandler(sink stats.SessionSink, roster student.Repository, counters student.CounterStore, cache stats.LeaderboardCache) *RecordSessionHandler {
	h := NewRecordSessionHandler(sink, roster, counters, cache, nil, RecordSessionHandlerConfig{Concurrency: 3})
	h.newID = func() string { return "session-1" }
	h.now = func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }
	return h
}

func TestRecordSession_StoresRecordAndIncrements(t *testing.T) {
	ctx := context.Background()
	roster := seedRoster(t, "a", "b", "c")
	sessions := memory.NewSessionStore()
	cache := &spyCache{}

	res, err := newHandler(sessions, roster, roster, cache).Handle(ctx, RecordSessionCommand{
		ClassName: "3A",
		Answers: []stats.AnswerResult{
			{StudentID: "a", Correct: true, ElapsedSeconds: 0},
			{StudentID: "b", Correct: true, ElapsedSeconds: 2},
			{StudentID: "a", Correct: false, ElapsedSeconds: 4},
			{StudentID: "c", Correct: true, ElapsedSeconds: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "session-1", res.SessionID)
	assert.Equal(t, 3, res.StudentsUpdated)
	assert.Empty(t, res.Failed)
	// 100 + (90+10) + 0 + 95
	assert.Equal(t, 295, res.Record.Score)
	assert.Equal(t, 30, res.Record.Accuracy)
	assert.Equal(t, 2, res.Record.MaxStreak)
	assert.Equal(t, 1, cache.invalidated)

	stored, err := sessions.ListByClass(ctx, "3A", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.Record, stored[0])

	counters, err := roster.Load(ctx, "3A", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, student.Stats{TotalAttempts: 2, CorrectAttempts: 1}, counters["a"])
	assert.Equal(t, student.Stats{TotalAttempts: 1, CorrectAttempts: 1}, counters["b"])
	assert.Equal(t, student.Stats{TotalAttempts: 1, CorrectAttempts: 1}, counters["c"])
}

func TestRecordSession_AppendErrorPropagatesUnchanged(t *testing.T) {
	sinkErr := errors.New("disk full")
	roster := seedRoster(t, "a")
	counters := &flakyCounters{CounterStore: roster}

	_, err := newHandler(failingSink{err: sinkErr}, roster, counters, nil).Handle(context.Background(), RecordSessionCommand{
		ClassName: "3A",
		Answers:   []stats.AnswerResult{{StudentID: "a", Correct: true}},
	})

	assert.Same(t, sinkErr, err)
	assert.Zero(t, counters.calls, "no counter is touched when the append fails")
}

func TestRecordSession_IncrementFailuresAreReported(t *testing.T) {
	ctx := context.Background()
	roster := seedRoster(t, "a", "b", "c")
	counters := &flakyCounters{CounterStore: roster, fail: map[string]bool{"b": true}}

	res, err := newHandler(memory.NewSessionStore(), roster, counters, nil).Handle(ctx, RecordSessionCommand{
		ClassName: "3A",
		Answers: []stats.AnswerResult{
			{StudentID: "a", Correct: true},
			{StudentID: "b", Correct: true},
			{StudentID: "c", Correct: false},
			{StudentID: "ghost", Correct: false},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, counters.calls, "students off the roster never reach the counter store")
	assert.Equal(t, 2, res.StudentsUpdated)
	require.Len(t, res.Failed, 2)

	failedIDs := []string{res.Failed[0].StudentID, res.Failed[1].StudentID}
	assert.ElementsMatch(t, []string{"b", "ghost"}, failedIDs)

	got, _ := roster.Load(ctx, "3A", []string{"a", "c"})
	assert.Equal(t, int64(1), got["a"].CorrectAttempts)
	assert.Equal(t, int64(1), got["c"].TotalAttempts)
}

func TestRecordSession_UnknownStudentsReportedOnEveryBackend(t *testing.T) {
	ctx := context.Background()
	counters := &openCounters{}

	res, err := newHandler(memory.NewSessionStore(), seedRoster(t, "a"), counters, nil).Handle(ctx, RecordSessionCommand{
		ClassName: "3A",
		Answers: []stats.AnswerResult{
			{StudentID: "a", Correct: true},
			{StudentID: "intruder", Correct: true},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.StudentsUpdated)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "intruder", res.Failed[0].StudentID)
	assert.Equal(t, shared.ErrStudentNotFound.Error(), res.Failed[0].Error)
	assert.Equal(t, map[string]student.Stats{"3A/a": {TotalAttempts: 1, CorrectAttempts: 1}}, counters.seen)
}

func TestRecordSession_SameIDInAnotherClassUntouched(t *testing.T) {
	ctx := context.Background()
	roster := seedRoster(t, "1", "2")
	enrol(t, roster, "3B", "1")

	_, err := newHandler(memory.NewSessionStore(), roster, roster, nil).Handle(ctx, RecordSessionCommand{
		ClassName: "3A",
		Answers:   []stats.AnswerResult{{StudentID: "1", Correct: true}},
	})
	require.NoError(t, err)

	inA, err := roster.Load(ctx, "3A", []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, student.Stats{TotalAttempts: 1, CorrectAttempts: 1}, inA["1"])

	inB, err := roster.Load(ctx, "3B", []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, student.Stats{}, inB["1"])
}

func TestRecordSession_RosterErrorStopsBeforeAppend(t *testing.T) {
	rosterErr := errors.New("roster offline")
	sessions := memory.NewSessionStore()
	counters := &openCounters{}

	_, err := newHandler(sessions, brokenRoster{err: rosterErr}, counters, nil).Handle(context.Background(), RecordSessionCommand{
		ClassName: "3A",
		Answers:   []stats.AnswerResult{{StudentID: "a", Correct: true}},
	})
	assert.ErrorIs(t, err, rosterErr)

	stored, _ := sessions.ListByClass(context.Background(), "3A", 0)
	assert.Empty(t, stored)
	assert.Empty(t, counters.seen)
}

func TestRecordSession_Validation(t *testing.T) {
	roster := seedRoster(t)
	h := newHandler(memory.NewSessionStore(), roster, roster, nil)

	tests := []struct {
		name string
		cmd  RecordSessionCommand
		want error
	}{
		{"no class", RecordSessionCommand{Answers: []stats.AnswerResult{{StudentID: "a"}}}, shared.ErrEmptyClassName},
		{"no answers", RecordSessionCommand{ClassName: "3A"}, shared.ErrNoAnswers},
		{"eleven answers", RecordSessionCommand{ClassName: "3A", Answers: make([]stats.AnswerResult, 11)}, shared.ErrTooManyAnswers},
		{"blank student", RecordSessionCommand{ClassName: "3A", Answers: []stats.AnswerResult{{StudentID: ""}}}, shared.ErrEmptyAnswerID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestRecordSession_OrderDoesNotChangeTotals(t *testing.T) {
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d", "e"}

	var games [][]stats.AnswerResult
	rng := rand.New(rand.NewPCG(11, 13))
	for g := 0; g < 12; g++ {
		answers := make([]stats.AnswerResult, 10)
		for i := range answers {
			answers[i] = stats.AnswerResult{StudentID: ids[rng.IntN(len(ids))], Correct: rng.IntN(2) == 0}
		}
		games = append(games, answers)
	}

	run := func(order []int) map[string]student.Stats {
		roster := seedRoster(t, ids...)
		h := NewRecordSessionHandler(memory.NewSessionStore(), roster, roster, nil, nil, RecordSessionHandlerConfig{Concurrency: 8})

		var wg sync.WaitGroup
		for _, g := range order {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := h.Handle(ctx, RecordSessionCommand{ClassName: "3A", Answers: games[g]})
				if assert.NoError(t, err) {
					assert.Empty(t, res.Failed)
				}
			}()
		}
		wg.Wait()

		got, err := roster.Load(ctx, "3A", ids)
		require.NoError(t, err)
		return got
	}

	forward := make([]int, len(games))
	for i := range forward {
		forward[i] = i
	}
	shuffled := append([]int(nil), forward...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	assert.Equal(t, run(forward), run(shuffled))
}

func TestCoalesceAnswers(t *testing.T) {
	deltas, order := CoalesceAnswers([]stats.AnswerResult{
		{StudentID: "b", Correct: true},
		{StudentID: "a", Correct: false},
		{StudentID: "b", Correct: false},
		{StudentID: "b", Correct: true},
	})

	assert.Equal(t, []string{"b", "a"}, order)
	assert.Equal(t, student.Stats{TotalAttempts: 3, CorrectAttempts: 2}, deltas["b"])
	assert.Equal(t, student.Stats{TotalAttempts: 1}, deltas["a"])
}

func TestRecordSessionResult_String(t *testing.T) {
	r := &RecordSessionResult{SessionID: "x", StudentsUpdated: 2, Failed: make([]IncrementFailure, 1)}
	assert.Equal(t, fmt.Sprintf("RecordSessionResult{Session: %s, Updated: %d, Failed: %d}", "x", 2, 1), r.String())
}
