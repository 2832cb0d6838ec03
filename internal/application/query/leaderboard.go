package query

import (
	"context"
	"fmt"
	"time"

	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD QUERY
// Cross-class ranking by average score. Served from the cache when present;
// the command side invalidates it on every recorded session.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardResult contains the ranked classes.
type LeaderboardResult struct {
	Entries     []stats.LeaderboardEntry `json:"entries"`
	FromCache   bool                     `json:"from_cache"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// LeaderboardHandler computes the leaderboard.
type LeaderboardHandler struct {
	sessions stats.SessionRepository
	cache    stats.LeaderboardCache
	size     int
	ttl      time.Duration
	log      *logger.Logger
}

// LeaderboardHandlerConfig contains configuration for the handler.
type LeaderboardHandlerConfig struct {
	Size     int
	CacheTTL time.Duration
}

// NewLeaderboardHandler creates a new handler. cache may be nil.
func NewLeaderboardHandler(
	sessions stats.SessionRepository,
	cache stats.LeaderboardCache,
	config LeaderboardHandlerConfig,
	log *logger.Logger,
) *LeaderboardHandler {
	if config.Size <= 0 {
		config.Size = stats.DefaultLeaderboardSize
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Minute
	}
	if log == nil {
		log = logger.Discard()
	}
	return &LeaderboardHandler{
		sessions: sessions,
		cache:    cache,
		size:     config.Size,
		ttl:      config.CacheTTL,
		log:      log.With(logger.Component("leaderboard")),
	}
}

// Handle returns the leaderboard. Cache errors are logged and bypassed.
func (h *LeaderboardHandler) Handle(ctx context.Context) (*LeaderboardResult, error) {
	log := logger.FromContext(ctx, h.log)

	// The generation is read before the sessions, so a board that misses a
	// concurrent append is stored under a generation that append has retired.
	var (
		generation int64
		cacheable  bool
	)
	if h.cache != nil {
		entries, gen, ok, err := h.cache.Get(ctx)
		switch {
		case err != nil:
			log.Warn("leaderboard cache read failed", logger.Err(err))
		case ok:
			return &LeaderboardResult{Entries: entries, FromCache: true, GeneratedAt: time.Now().UTC()}, nil
		default:
			generation, cacheable = gen, true
		}
	}

	records, err := h.sessions.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: list sessions: %w", err)
	}
	entries := stats.ComputeLeaderboard(records, h.size)

	if cacheable {
		if err := h.cache.Set(ctx, generation, entries, h.ttl); err != nil {
			log.Warn("leaderboard cache write failed", logger.Err(err))
		}
	}

	return &LeaderboardResult{Entries: entries, GeneratedAt: time.Now().UTC()}, nil
}
