package stats

import (
	"sort"

	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// Defaults of the read-side views.
const (
	DefaultLeaderboardSize    = 5
	DefaultAttentionLimit     = 5
	DefaultAttentionThreshold = 80.0
)

// ComputeClassStats folds the sessions of one class. The average is floored;
// an empty input yields the zero value.
func ComputeClassStats(records []*SessionRecord) ClassStats {
	var (
		sum int
		cs  ClassStats
	)
	for _, r := range records {
		if r == nil {
			continue
		}
		if cs.Games == 0 || r.Score > cs.Max {
			cs.Max = r.Score
		}
		sum += r.Score
		cs.Games++
	}
	if cs.Games > 0 {
		cs.Average = floorDiv(sum, cs.Games)
	}
	return cs
}

// ComputeLeaderboard groups sessions by class and ranks the classes by
// average score, highest first. Equal averages rank the class with more games
// first, then by class name. A limit <= 0 uses DefaultLeaderboardSize.
func ComputeLeaderboard(records []*SessionRecord, limit int) []LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}

	byClass := make(map[string][]*SessionRecord)
	for _, r := range records {
		if r == nil {
			continue
		}
		byClass[r.ClassName] = append(byClass[r.ClassName], r)
	}

	entries := make([]LeaderboardEntry, 0, len(byClass))
	for class, rs := range byClass {
		cs := ComputeClassStats(rs)
		entries = append(entries, LeaderboardEntry{
			ClassName: class,
			Average:   cs.Average,
			Max:       cs.Max,
			Games:     cs.Games,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Average != b.Average {
			return a.Average > b.Average
		}
		if a.Games != b.Games {
			return a.Games > b.Games
		}
		return a.ClassName < b.ClassName
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// NeedsAttention lists practised students whose accuracy is below threshold,
// weakest first. Students with no attempts are never listed. A threshold <= 0
// uses DefaultAttentionThreshold and a limit <= 0 uses DefaultAttentionLimit.
func NeedsAttention(students []*student.Student, threshold float64, limit int) []AttentionEntry {
	if threshold <= 0 {
		threshold = DefaultAttentionThreshold
	}
	if limit <= 0 {
		limit = DefaultAttentionLimit
	}

	type candidate struct {
		s   *student.Student
		acc float64
	}
	weak := make([]candidate, 0)
	for _, s := range students {
		if s == nil || !s.Stats.Practised() {
			continue
		}
		if acc := s.Stats.Accuracy(); acc < threshold {
			weak = append(weak, candidate{s: s, acc: acc})
		}
	}

	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].acc < weak[j].acc
	})
	if len(weak) > limit {
		weak = weak[:limit]
	}

	out := make([]AttentionEntry, len(weak))
	for i, c := range weak {
		out[i] = AttentionEntry{
			StudentID:       c.s.ID,
			Name:            c.s.Name,
			SeatNumber:      c.s.SeatNumber,
			PhotoURL:        c.s.PhotoURL,
			Accuracy:        roundPercent(c.acc),
			TotalAttempts:   c.s.Stats.TotalAttempts,
			CorrectAttempts: c.s.Stats.CorrectAttempts,
		}
	}
	return out
}

// RecentSessions returns up to limit records, newest first.
func RecentSessions(records []*SessionRecord, limit int) []*SessionRecord {
	out := make([]*SessionRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func roundPercent(v float64) int {
	return int(v + 0.5)
}
