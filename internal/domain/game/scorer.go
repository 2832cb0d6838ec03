// Package game implements the recognition game: question generation, the
// ten-question session state machine and the per-answer scorer.
package game

import "math"

// Scoring constants.
const (
	// BasePoints is awarded for an instant correct answer.
	BasePoints = 100

	// MinBasePoints is the floor of the time-decayed base.
	MinBasePoints = 10

	// DecayPerSecond is subtracted from BasePoints for each elapsed second.
	DecayPerSecond = 5

	// StreakBonus is awarded per consecutive correct answer before this one.
	StreakBonus = 10
)

// Result is the outcome of scoring one answer.
type Result struct {
	// Points - points earned by the answer.
	Points int `json:"points"`

	// Streak - consecutive correct answers after this one.
	Streak int `json:"streak"`
}

// Score scores a correct answer given in elapsed seconds with streak prior
// consecutive correct answers.
//
// Points are max(10, floor(100 - 5*elapsed)) + 10*streak. Negative, NaN and
// infinite elapsed times are treated as 0.
func Score(elapsed float64, streak int) Result {
	if elapsed < 0 || math.IsNaN(elapsed) || math.IsInf(elapsed, 0) {
		elapsed = 0
	}
	if streak < 0 {
		streak = 0
	}

	base := int(math.Floor(BasePoints - elapsed*DecayPerSecond))
	base = max(base, MinBasePoints)

	return Result{
		Points: base + streak*StreakBonus,
		Streak: streak + 1,
	}
}

// Miss scores an incorrect answer: no points and the streak resets.
func Miss() Result {
	return Result{}
}
