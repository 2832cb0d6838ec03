package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster-hub/classroom-roster/internal/domain/grouping"
	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
	"github.com/roster-hub/classroom-roster/internal/infrastructure/persistence/memory"
)

type fixture struct {
	students *memory.StudentStore
	sessions *memory.SessionStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{students: memory.NewStudentStore(), sessions: memory.NewSessionStore()}

	rows := []student.NewStudentParams{
		{ID: "s10", ClassName: "3A", Name: "Wang Mei", SeatNumber: "10", Familiarity: 4, Tags: []string{"music"}},
		{ID: "s2", ClassName: "3A", Name: "Lin Hao", SeatNumber: "2", Familiarity: 9, Tags: []string{"art"}},
		{ID: "s1", ClassName: "3A", Name: "Chen Yu", SeatNumber: "1", Familiarity: 1},
		{ID: "s3", ClassName: "3A", Name: "Wu Lan", SeatNumber: "3", Familiarity: 6, Tags: []string{"art"}},
		{ID: "b1", ClassName: "3B", Name: "Other", SeatNumber: "1"},
	}
	for _, p := range rows {
		s, err := student.NewStudent(p)
		require.NoError(t, err)
		require.NoError(t, f.students.Save(ctx, s))
	}
	return f
}

func (f fixture) session(t *testing.T, id, class string, score int, at time.Time) {
	t.Helper()
	require.NoError(t, f.sessions.Append(context.Background(), &stats.SessionRecord{
		ID: id, ClassName: class, Score: score, CreatedAt: at,
		Answers: []stats.AnswerResult{{StudentID: "s1"}},
	}))
}

func TestSearchRoster(t *testing.T) {
	f := newFixture(t)
	h := NewSearchRosterHandler(f.students, f.students)

	res, err := h.Handle(context.Background(), SearchRosterQuery{ClassName: "3A"})
	require.NoError(t, err)
	require.Equal(t, 4, res.Total)

	seats := make([]string, 0, res.Total)
	for _, s := range res.Students {
		seats = append(seats, s.SeatNumber)
	}
	assert.Equal(t, []string{"1", "2", "3", "10"}, seats)

	res, err = h.Handle(context.Background(), SearchRosterQuery{ClassName: "3A", Text: " WU "})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "s3", res.Students[0].ID)
	assert.Equal(t, "WU", res.Query)

	_, err = h.Handle(context.Background(), SearchRosterQuery{})
	assert.ErrorIs(t, err, shared.ErrEmptyClassName)
}

// counterOverlay is keyed by "class/id".
type counterOverlay map[string]student.Stats

func (c counterOverlay) Increment(context.Context, string, string, student.Stats) error { return nil }

func (c counterOverlay) Load(_ context.Context, className string, ids []string) (map[string]student.Stats, error) {
	out := map[string]student.Stats{}
	for _, id := range ids {
		if s, ok := c[className+"/"+id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func TestSearchRoster_OverlaysCounters(t *testing.T) {
	f := newFixture(t)
	h := NewSearchRosterHandler(f.students, counterOverlay{
		"3A/s2": {TotalAttempts: 7, CorrectAttempts: 3},
		"3B/s2": {TotalAttempts: 99},
	})

	res, err := h.Handle(context.Background(), SearchRosterQuery{ClassName: "3A", Text: "2"})
	require.NoError(t, err)
	require.Len(t, res.Students, 1)
	assert.Equal(t, int64(7), res.Students[0].Stats.TotalAttempts)
}

func TestBuildGroups(t *testing.T) {
	f := newFixture(t)
	h := NewBuildGroupsHandler(f.students, grouping.NewEngine(), 2, nil)

	res, err := h.Handle(context.Background(), BuildGroupsQuery{ClassName: "3A", Strategy: "balanced"})
	require.NoError(t, err)

	assert.Equal(t, grouping.StrategyHeterogeneous, res.Strategy)
	assert.Equal(t, 2, res.GroupSize)
	require.Len(t, res.Groups, 2)
	// 9,6,4,1 dealt serpentine into two groups.
	assert.Equal(t, []string{"s2", "s1"}, res.Groups[0].MemberIDs())
	assert.Equal(t, []string{"s3", "s10"}, res.Groups[1].MemberIDs())
}

func TestBuildGroups_FilterAndErrors(t *testing.T) {
	f := newFixture(t)
	h := NewBuildGroupsHandler(f.students, nil, 0, nil)

	res, err := h.Handle(context.Background(), BuildGroupsQuery{ClassName: "3A", Strategy: "random", Text: "w"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Students)
	assert.Len(t, res.Groups, 1)

	_, err = h.Handle(context.Background(), BuildGroupsQuery{ClassName: "3A", Strategy: "alphabet"})
	assert.ErrorIs(t, err, shared.ErrUnknownStrategy)

	_, err = h.Handle(context.Background(), BuildGroupsQuery{ClassName: "3A", Strategy: "random", GroupSize: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidGroupSize)

	empty, err := h.Handle(context.Background(), BuildGroupsQuery{ClassName: "9Z", Strategy: "interest"})
	require.NoError(t, err)
	assert.Empty(t, empty.Groups)
}

func TestClassStats(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	f.session(t, "1", "3A", 300, base)
	f.session(t, "2", "3A", 401, base.Add(time.Hour))
	f.session(t, "3", "3B", 999, base)

	h := NewClassStatsHandler(f.sessions)
	res, err := h.Handle(context.Background(), ClassStatsQuery{ClassName: "3A"})
	require.NoError(t, err)
	assert.Equal(t, stats.ClassStats{Average: 350, Max: 401, Games: 2}, res.Stats)
	require.Len(t, res.Recent, 2)
	assert.Equal(t, "2", res.Recent[0].ID)

	none, err := h.Handle(context.Background(), ClassStatsQuery{ClassName: "4C"})
	require.NoError(t, err)
	assert.Equal(t, stats.ClassStats{}, none.Stats)

	recent, err := h.Recent(context.Background(), "3A", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2", recent[0].ID)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context) ([]stats.LeaderboardEntry, int64, bool, error) {
	return nil, 0, false, errors.New("redis down")
}
func (brokenCache) Set(context.Context, int64, []stats.LeaderboardEntry, time.Duration) error {
	return errors.New("redis down")
}
func (brokenCache) Invalidate(context.Context) error { return nil }

func TestLeaderboard_CacheAside(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.session(t, "1", "3A", 300, now)
	f.session(t, "2", "3B", 500, now)

	cache := memory.NewLeaderboardCache()
	h := NewLeaderboardHandler(f.sessions, cache, LeaderboardHandlerConfig{CacheTTL: time.Hour}, nil)

	first, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.Len(t, first.Entries, 2)
	assert.Equal(t, "3B", first.Entries[0].ClassName)

	f.session(t, "3", "3C", 900, now)

	second, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Len(t, second.Entries, 2)

	require.NoError(t, cache.Invalidate(context.Background()))
	third, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3C", third.Entries[0].ClassName)
}

// appendDuringList appends a session right after ListAll returns, as a
// concurrent RecordSession would between the read and the cache write.
type appendDuringList struct {
	*memory.SessionStore
	cache stats.LeaderboardCache
	late  *stats.SessionRecord
}

func (a *appendDuringList) ListAll(ctx context.Context) ([]*stats.SessionRecord, error) {
	records, err := a.SessionStore.ListAll(ctx)
	if a.late != nil {
		late := a.late
		a.late = nil
		if err := a.SessionStore.Append(ctx, late); err != nil {
			return nil, err
		}
		if err := a.cache.Invalidate(ctx); err != nil {
			return nil, err
		}
	}
	return records, err
}

func TestLeaderboard_StaleBoardNotServedAfterInvalidation(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.session(t, "1", "3A", 300, now)

	cache := memory.NewLeaderboardCache()
	sessions := &appendDuringList{
		SessionStore: f.sessions,
		cache:        cache,
		late:         &stats.SessionRecord{ID: "2", ClassName: "3B", Score: 900, CreatedAt: now},
	}
	h := NewLeaderboardHandler(sessions, cache, LeaderboardHandlerConfig{CacheTTL: time.Hour}, nil)

	first, err := h.Handle(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Entries, 1, "computed before the late append")

	second, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	require.Len(t, second.Entries, 2)
	assert.Equal(t, "3B", second.Entries[0].ClassName)
}

func TestLeaderboard_BrokenCacheFallsBack(t *testing.T) {
	f := newFixture(t)
	f.session(t, "1", "3A", 300, time.Now())

	h := NewLeaderboardHandler(f.sessions, brokenCache{}, LeaderboardHandlerConfig{}, nil)
	res, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Len(t, res.Entries, 1)
}

func TestNeedsAttention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.students.Increment(ctx, "3A", "s1", student.Stats{TotalAttempts: 10, CorrectAttempts: 2}))
	require.NoError(t, f.students.Increment(ctx, "3A", "s2", student.Stats{TotalAttempts: 10, CorrectAttempts: 9}))
	require.NoError(t, f.students.Increment(ctx, "3A", "s3", student.Stats{TotalAttempts: 4, CorrectAttempts: 3}))

	h := NewNeedsAttentionHandler(f.students, nil, 0, 0)
	res, err := h.Handle(ctx, NeedsAttentionQuery{ClassName: "3A"})
	require.NoError(t, err)

	assert.Equal(t, stats.DefaultAttentionThreshold, res.Threshold)
	require.Len(t, res.Students, 2)
	assert.Equal(t, "s1", res.Students[0].StudentID)
	assert.Equal(t, 20, res.Students[0].Accuracy)
	assert.Equal(t, "s3", res.Students[1].StudentID)
	assert.Equal(t, 75, res.Students[1].Accuracy)
}

func TestNeedsAttention_LimitNeverExceedsCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"s1", "s2", "s3", "s10"} {
		require.NoError(t, f.students.Increment(ctx, "3A", id, student.Stats{TotalAttempts: 4}))
	}

	h := NewNeedsAttentionHandler(f.students, nil, 0, 3)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, 3},
		{"smaller", 2, 2},
		{"above cap", 50, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.Handle(ctx, NeedsAttentionQuery{ClassName: "3A", Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, res.Students, tt.want)
		})
	}
}

func TestClassReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.session(t, "1", "3A", 200, time.Now())
	require.NoError(t, f.students.Increment(ctx, "3A", "s10", student.Stats{TotalAttempts: 2}))

	h := NewClassReportHandler(f.students, f.students, f.sessions, 80, 5)
	report, err := h.Handle(ctx, "3A")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stats.Games)
	require.Len(t, report.Students, 4)
	assert.Equal(t, "1", report.Students[0].SeatNumber)
	require.Len(t, report.Attention, 1)
	assert.Equal(t, "s10", report.Attention[0].StudentID)
}
