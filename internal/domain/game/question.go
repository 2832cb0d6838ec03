package game

import (
	"math/rand/v2"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// OptionsPerQuestion is the number of photos offered per question.
const OptionsPerQuestion = 4

// Question asks the player to pick Answer among Options.
type Question struct {
	// Answer - the student whose name is shown.
	Answer *student.Student `json:"answer"`

	// Options - the answer plus three distractors, shuffled.
	Options []*student.Student `json:"options"`
}

// IsCorrect reports whether picking studentID answers the question.
func (q *Question) IsCorrect(studentID string) bool {
	return q.Answer != nil && q.Answer.ID == studentID
}

// NewQuestion draws a question from the roster. The answer is chosen uniformly
// at random and the three distractors are distinct students other than the
// answer. A nil rng uses the package-level source.
func NewQuestion(rng *rand.Rand, students []*student.Student) (*Question, error) {
	roster := make([]*student.Student, 0, len(students))
	for _, s := range students {
		if s != nil {
			roster = append(roster, s)
		}
	}
	if len(roster) < OptionsPerQuestion {
		return nil, shared.ErrNotEnoughStudents
	}

	var perm []int
	if rng != nil {
		perm = rng.Perm(len(roster))
	} else {
		perm = rand.Perm(len(roster))
	}

	options := make([]*student.Student, OptionsPerQuestion)
	for i := range options {
		options[i] = roster[perm[i]]
	}
	answer := options[0]

	swap := func(i, j int) { options[i], options[j] = options[j], options[i] }
	if rng != nil {
		rng.Shuffle(len(options), swap)
	} else {
		rand.Shuffle(len(options), swap)
	}

	return &Question{Answer: answer, Options: options}, nil
}
