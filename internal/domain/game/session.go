package game

import (
	"strings"
	"time"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
)

// QuestionsPerSession is the length of one game.
const QuestionsPerSession = 10

// Session tracks one ten-question run. It is not safe for concurrent use.
type Session struct {
	className string
	score     int
	streak    int
	maxStreak int
	correct   int
	answers   []stats.AnswerResult
}

// NewSession starts an empty session for a class.
func NewSession(className string) *Session {
	return &Session{
		className: className,
		answers:   make([]stats.AnswerResult, 0, QuestionsPerSession),
	}
}

// Answer scores one answer about studentID and advances the session.
func (s *Session) Answer(studentID string, correct bool, elapsed float64) (Result, error) {
	if s.Done() {
		return Result{}, shared.ErrSessionComplete
	}
	if strings.TrimSpace(studentID) == "" {
		return Result{}, shared.ErrEmptyAnswerID
	}

	var r Result
	if correct {
		r = Score(elapsed, s.streak)
		s.correct++
	} else {
		r = Miss()
	}

	s.score += r.Points
	s.streak = r.Streak
	s.maxStreak = max(s.maxStreak, s.streak)
	s.answers = append(s.answers, stats.AnswerResult{
		StudentID:      studentID,
		Correct:        correct,
		ElapsedSeconds: elapsed,
	})
	return r, nil
}

// Done reports whether every question has been answered.
func (s *Session) Done() bool {
	return len(s.answers) >= QuestionsPerSession
}

// Score returns the running total.
func (s *Session) Score() int { return s.score }

// Streak returns the current streak.
func (s *Session) Streak() int { return s.streak }

// MaxStreak returns the best streak so far.
func (s *Session) MaxStreak() int { return s.maxStreak }

// Answered returns how many questions have been answered.
func (s *Session) Answered() int { return len(s.answers) }

// Accuracy returns correct/10 as a percentage clamped to [0, 100].
func (s *Session) Accuracy() int {
	return AccuracyOf(s.correct)
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() []stats.AnswerResult {
	return append([]stats.AnswerResult(nil), s.answers...)
}

// Record builds the immutable session record.
func (s *Session) Record(id string, now time.Time) *stats.SessionRecord {
	return &stats.SessionRecord{
		ID:        id,
		ClassName: s.className,
		Score:     s.score,
		Accuracy:  s.Accuracy(),
		MaxStreak: s.maxStreak,
		Answers:   s.Answers(),
		CreatedAt: now,
	}
}

// AccuracyOf converts a correct count into the session accuracy percentage.
func AccuracyOf(correct int) int {
	acc := correct * 100 / QuestionsPerSession
	return min(max(acc, 0), 100)
}

// Replay feeds answers through a fresh session. It fails when there are more
// answers than questions or an answer has no student.
func Replay(className string, answers []stats.AnswerResult) (*Session, error) {
	if len(answers) > QuestionsPerSession {
		return nil, shared.ErrTooManyAnswers
	}
	s := NewSession(className)
	for _, a := range answers {
		if _, err := s.Answer(a.StudentID, a.Correct, a.ElapsedSeconds); err != nil {
			return nil, err
		}
	}
	return s, nil
}
