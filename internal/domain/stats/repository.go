package stats

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// SessionSink appends completed sessions. Append must be all-or-nothing.
type SessionSink interface {
	Append(ctx context.Context, record *SessionRecord) error
}

// SessionRepository is the full session store.
type SessionRepository interface {
	SessionSink

	// ListByClass returns the sessions of a class, newest first.
	// A limit <= 0 returns all of them.
	ListByClass(ctx context.Context, className string, limit int) ([]*SessionRecord, error)

	// ListAll returns every stored session.
	ListAll(ctx context.Context) ([]*SessionRecord, error)
}

// LeaderboardCache stores the computed leaderboard between writes.
//
// Every Invalidate bumps a generation counter. Get reports the current
// generation and Set stores the entries under the generation the caller read,
// so a board computed before an invalidation is never served after it.
type LeaderboardCache interface {
	// Get returns the cached leaderboard if it was stored under the current
	// generation, together with that generation.
	Get(ctx context.Context) (entries []LeaderboardEntry, generation int64, ok bool, err error)

	// Set stores the leaderboard computed at generation for ttl.
	Set(ctx context.Context, generation int64, entries []LeaderboardEntry, ttl time.Duration) error

	// Invalidate drops the cached leaderboard and bumps the generation.
	Invalidate(ctx context.Context) error
}
