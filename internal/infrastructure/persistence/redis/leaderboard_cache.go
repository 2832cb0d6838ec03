package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roster-hub/classroom-roster/internal/domain/stats"
)

// LeaderboardCache stores the computed leaderboard as one JSON value with TTL,
// tagged with the generation it was computed at. Invalidate INCRs the
// generation key and drops the board in one transaction.
type LeaderboardCache struct {
	cache *Cache
}

var _ stats.LeaderboardCache = (*LeaderboardCache)(nil)

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

type cachedBoard struct {
	Generation int64                    `json:"generation"`
	Entries    []stats.LeaderboardEntry `json:"entries"`
}

func (c *LeaderboardCache) Get(ctx context.Context) ([]stats.LeaderboardEntry, int64, bool, error) {
	vals, err := c.cache.client.MGet(ctx, LeaderboardGenerationKey(), LeaderboardKey()).Result()
	if err != nil {
		return nil, 0, false, err
	}

	generation, err := parseGeneration(vals[0])
	if err != nil {
		return nil, 0, false, err
	}

	raw, ok := vals[1].(string)
	if !ok {
		return nil, generation, false, nil
	}

	var board cachedBoard
	if err := json.Unmarshal([]byte(raw), &board); err != nil {
		return nil, generation, false, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	if board.Generation != generation {
		return nil, generation, false, nil
	}
	if board.Entries == nil {
		board.Entries = []stats.LeaderboardEntry{}
	}
	return board.Entries, generation, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, generation int64, entries []stats.LeaderboardEntry, ttl time.Duration) error {
	if entries == nil {
		entries = []stats.LeaderboardEntry{}
	}
	return c.cache.SetJSON(ctx, LeaderboardKey(), cachedBoard{Generation: generation, Entries: entries}, ttl)
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	_, err := c.cache.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, LeaderboardGenerationKey())
		pipe.Del(ctx, LeaderboardKey())
		return nil
	})
	return err
}

// parseGeneration reads an MGET slot; a missing key is generation 0.
func parseGeneration(v any) (int64, error) {
	raw, ok := v.(string)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: leaderboard generation: %v", ErrCacheSerialization, err)
	}
	return n, nil
}
