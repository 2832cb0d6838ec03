package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// Hash fields of a student's counters.
const (
	fieldTotal   = "total"
	fieldCorrect = "correct"
)

// CounterStore keeps recognition counters in one hash per (class, student) and
// increments them with HINCRBY inside MULTI/EXEC, so both fields move together.
// It does not know the roster; callers check membership before incrementing.
type CounterStore struct {
	cache *Cache
}

var _ student.CounterStore = (*CounterStore)(nil)

// NewCounterStore creates a new CounterStore.
func NewCounterStore(cache *Cache) *CounterStore {
	return &CounterStore{cache: cache}
}

// Increment adds delta to the student's counters.
func (s *CounterStore) Increment(ctx context.Context, className, studentID string, delta student.Stats) error {
	if className == "" || studentID == "" {
		return ErrCacheKeyEmpty
	}

	key := StudentStatsKey(className, studentID)
	_, err := s.cache.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldTotal, delta.TotalAttempts)
		pipe.HIncrBy(ctx, key, fieldCorrect, delta.CorrectAttempts)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: increment %s/%s: %w", className, studentID, err)
	}
	return nil
}

// Load reads the counters of all students in one pipeline. Students without a
// hash are absent from the result.
func (s *CounterStore) Load(ctx context.Context, className string, studentIDs []string) (map[string]student.Stats, error) {
	out := make(map[string]student.Stats, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}

	pipe := s.cache.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(studentIDs))
	for i, id := range studentIDs {
		cmds[i] = pipe.HGetAll(ctx, StudentStatsKey(className, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: load counters: %w", err)
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		st, err := parseStats(fields)
		if err != nil {
			return nil, fmt.Errorf("redis: counters of %s: %w", studentIDs[i], err)
		}
		out[studentIDs[i]] = st
	}
	return out, nil
}

func parseStats(fields map[string]string) (student.Stats, error) {
	var st student.Stats
	for name, dst := range map[string]*int64{fieldTotal: &st.TotalAttempts, fieldCorrect: &st.CorrectAttempts} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return student.Stats{}, fmt.Errorf("%w: field %s: %v", ErrCacheSerialization, name, err)
		}
		*dst = v
	}
	return st, nil
}
