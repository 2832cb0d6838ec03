package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
)

// SessionRepository implements stats.SessionRepository on the game_sessions
// table. Rows are only ever inserted.
type SessionRepository struct {
	conn *Connection
}

var _ stats.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

// Append inserts the record in a single statement.
func (r *SessionRepository) Append(ctx context.Context, rec *stats.SessionRecord) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO game_sessions (id, class_name, score, accuracy, max_streak, answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.ClassName, rec.Score, rec.Accuracy, rec.MaxStreak, answers, rec.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("stats", "Append", shared.ErrAlreadyExists, "session already stored", err)
		}
		return fmt.Errorf("failed to append session %s: %w", rec.ID, err)
	}
	return nil
}

// ListByClass returns the sessions of a class, newest first.
func (r *SessionRepository) ListByClass(ctx context.Context, className string, limit int) ([]*stats.SessionRecord, error) {
	query := `
		SELECT id, class_name, score, accuracy, max_streak, answers, created_at
		FROM game_sessions
		WHERE class_name = $1
		ORDER BY created_at DESC
	`
	args := []any{className}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

// ListAll returns every session in insertion time order.
func (r *SessionRepository) ListAll(ctx context.Context) ([]*stats.SessionRecord, error) {
	return r.list(ctx, `
		SELECT id, class_name, score, accuracy, max_streak, answers, created_at
		FROM game_sessions
		ORDER BY created_at
	`)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]*stats.SessionRecord, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*stats.SessionRecord, 0)
	for rows.Next() {
		var (
			rec     stats.SessionRecord
			answers []byte
		)
		if err := rows.Scan(&rec.ID, &rec.ClassName, &rec.Score, &rec.Accuracy, &rec.MaxStreak, &answers, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if err := json.Unmarshal(answers, &rec.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers of %s: %w", rec.ID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
