package memory

import (
	"context"
	"sync"
	"time"

	"github.com/roster-hub/classroom-roster/internal/domain/stats"
)

// LeaderboardCache is a single-entry TTL cache with a generation counter.
type LeaderboardCache struct {
	mu         sync.Mutex
	generation int64
	entriesGen int64
	entries    []stats.LeaderboardEntry
	expiresAt  time.Time
	now        func() time.Time
}

var _ stats.LeaderboardCache = (*LeaderboardCache)(nil)

// NewLeaderboardCache creates an empty cache.
func NewLeaderboardCache() *LeaderboardCache {
	return &LeaderboardCache{now: time.Now}
}

func (c *LeaderboardCache) Get(_ context.Context) ([]stats.LeaderboardEntry, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil || c.entriesGen != c.generation || !c.now().Before(c.expiresAt) {
		return nil, c.generation, false, nil
	}
	return append([]stats.LeaderboardEntry(nil), c.entries...), c.generation, true, nil
}

func (c *LeaderboardCache) Set(_ context.Context, generation int64, entries []stats.LeaderboardEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(make([]stats.LeaderboardEntry, 0, len(entries)), entries...)
	c.entriesGen = generation
	c.expiresAt = c.now().Add(ttl)
	return nil
}

func (c *LeaderboardCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.entries = nil
	return nil
}
