// Package stats folds completed game sessions into class statistics, the
// cross-class leaderboard and the per-student needs-attention list.
package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// AnswerResult is the outcome of one question.
type AnswerResult struct {
	// StudentID - the student who was the correct answer.
	StudentID string `json:"student_id"`

	// Correct - whether the player picked that student.
	Correct bool `json:"correct"`

	// ElapsedSeconds - time from question shown to answer.
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// SessionRecord is a completed game. Records are append-only and never
// modified after they are stored.
type SessionRecord struct {
	ID        string         `json:"id"`
	ClassName string         `json:"class_name"`
	Score     int            `json:"score"`
	Accuracy  int            `json:"accuracy"`
	MaxStreak int            `json:"max_streak"`
	Answers   []AnswerResult `json:"answers"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks the record before it is stored.
func (r *SessionRecord) Validate(maxAnswers int) error {
	if strings.TrimSpace(r.ClassName) == "" {
		return shared.ErrEmptyClassName
	}
	if len(r.Answers) == 0 {
		return shared.ErrNoAnswers
	}
	if maxAnswers > 0 && len(r.Answers) > maxAnswers {
		return shared.ErrTooManyAnswers
	}
	if r.Score < 0 || r.MaxStreak < 0 {
		return shared.NewDomainError("stats", "Validate", shared.ErrNegativeValue, "score and streak cannot be negative")
	}
	if r.Accuracy < 0 || r.Accuracy > 100 {
		return shared.NewDomainError("stats", "Validate", shared.ErrValueOutOfRange, "accuracy must be within 0..100")
	}
	for i, a := range r.Answers {
		if strings.TrimSpace(a.StudentID) == "" {
			return shared.WrapError("stats", "Validate", shared.ErrInvalidID,
				fmt.Sprintf("answer %d has no student", i), shared.ErrEmptyAnswerID)
		}
	}
	return nil
}

// CorrectCount returns the number of correct answers.
func (r *SessionRecord) CorrectCount() int {
	n := 0
	for _, a := range r.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// String returns a short description for logs.
func (r *SessionRecord) String() string {
	return fmt.Sprintf("Session{ID: %s, Class: %s, Score: %d, Accuracy: %d%%}", r.ID, r.ClassName, r.Score, r.Accuracy)
}

// ══════════════════════════════════════════════════════════════════════════════
// DERIVED VIEWS
// ══════════════════════════════════════════════════════════════════════════════

// ClassStats summarises the sessions of one class. It is never stored.
type ClassStats struct {
	Average int `json:"average"`
	Max     int `json:"max"`
	Games   int `json:"games"`
}

// LeaderboardEntry is one ranked class.
type LeaderboardEntry struct {
	// Rank - 1-based position.
	Rank int `json:"rank"`

	ClassName string `json:"class_name"`
	Average   int    `json:"average"`
	Max       int    `json:"max"`
	Games     int    `json:"games"`
}

// AttentionEntry is a student whose recognition accuracy is below threshold.
type AttentionEntry struct {
	StudentID       string `json:"student_id"`
	Name            string `json:"name"`
	SeatNumber      string `json:"seat_number"`
	PhotoURL        string `json:"photo_url,omitempty"`
	Accuracy        int    `json:"accuracy"`
	TotalAttempts   int64  `json:"total_attempts"`
	CorrectAttempts int64  `json:"correct_attempts"`
}
