// Package student contains the roster domain model: a student of a class,
// their tags and familiarity score, and the cumulative recognition counters.
package student

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Stats holds the cumulative recognition counters of a student.
// Counters only ever grow, and only through atomic increments.
type Stats struct {
	// TotalAttempts - how many questions had this student as the answer.
	TotalAttempts int64 `json:"total_attempts"`

	// CorrectAttempts - how many of those were answered correctly.
	CorrectAttempts int64 `json:"correct_attempts"`
}

// Accuracy returns correct/total as a percentage.
// A student who was never practised reports 100 so that they are not flagged
// as weak before there is any evidence.
func (s Stats) Accuracy() float64 {
	if s.TotalAttempts <= 0 {
		return 100
	}
	return float64(s.CorrectAttempts) / float64(s.TotalAttempts) * 100
}

// Practised reports whether the student has at least one attempt.
func (s Stats) Practised() bool {
	return s.TotalAttempts > 0
}

// Add returns the sum of two counter sets.
func (s Stats) Add(delta Stats) Stats {
	return Stats{
		TotalAttempts:   s.TotalAttempts + delta.TotalAttempts,
		CorrectAttempts: s.CorrectAttempts + delta.CorrectAttempts,
	}
}

// IsZero reports whether both counters are zero.
func (s Stats) IsZero() bool {
	return s.TotalAttempts == 0 && s.CorrectAttempts == 0
}

// Validate checks counter consistency.
func (s Stats) Validate() error {
	if s.TotalAttempts < 0 || s.CorrectAttempts < 0 {
		return shared.ErrNegativeAttempts
	}
	if s.CorrectAttempts > s.TotalAttempts {
		return shared.ErrCorrectExceedsAll
	}
	return nil
}

// AttemptDelta returns the counter increment for one answered question.
func AttemptDelta(correct bool) Stats {
	d := Stats{TotalAttempts: 1}
	if correct {
		d.CorrectAttempts = 1
	}
	return d
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is one member of a class roster.
type Student struct {
	// ID - opaque identifier, unique within the class.
	ID string `json:"id"`

	// ClassName - the class the student belongs to.
	ClassName string `json:"class_name"`

	// Name - display name.
	Name string `json:"name"`

	// SeatNumber - seat label. Usually numeric ("07") but not required to be.
	SeatNumber string `json:"seat_number"`

	// PhotoURL - reference into object storage, may be empty.
	PhotoURL string `json:"photo_url,omitempty"`

	// Tags - free-text interest tags, no duplicates, insertion order kept.
	Tags []string `json:"tags,omitempty"`

	// Familiarity - how well the student is already recognised (0 when unknown).
	Familiarity float64 `json:"familiarity"`

	// Stats - cumulative recognition counters.
	Stats Stats `json:"stats"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStudentParams contains the fields needed to enrol a student.
type NewStudentParams struct {
	ID          string
	ClassName   string
	Name        string
	SeatNumber  string
	PhotoURL    string
	Tags        []string
	Familiarity float64
}

// NewStudent creates a validated student with zero counters.
func NewStudent(params NewStudentParams) (*Student, error) {
	now := time.Now().UTC()

	s := &Student{
		ID:          strings.TrimSpace(params.ID),
		ClassName:   strings.TrimSpace(params.ClassName),
		Name:        strings.TrimSpace(params.Name),
		SeatNumber:  strings.TrimSpace(params.SeatNumber),
		PhotoURL:    strings.TrimSpace(params.PhotoURL),
		Familiarity: params.Familiarity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.SetTags(params.Tags)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the invariants of the entity.
func (s *Student) Validate() error {
	if s.ID == "" {
		return shared.ErrInvalidStudentID
	}
	if s.Name == "" {
		return shared.ErrEmptyStudentName
	}
	if s.ClassName == "" {
		return shared.ErrEmptyClassName
	}
	if math.IsNaN(s.Familiarity) || math.IsInf(s.Familiarity, 0) {
		return shared.ErrBadFamiliarity
	}
	return s.Stats.Validate()
}

// ══════════════════════════════════════════════════════════════════════════════
// TAGS
// ══════════════════════════════════════════════════════════════════════════════

// AddTag appends a tag if it is non-empty and not already present.
// It reports whether the tag was added.
func (s *Student) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || s.HasTag(tag) {
		return false
	}
	s.Tags = append(s.Tags, tag)
	return true
}

// SetTags replaces the tag set, dropping blanks and duplicates.
func (s *Student) SetTags(tags []string) {
	s.Tags = nil
	for _, t := range tags {
		s.AddTag(t)
	}
}

// HasTag reports whether the student carries the tag.
func (s *Student) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FirstTag returns the first tag, if any.
func (s *Student) FirstTag() (string, bool) {
	if len(s.Tags) == 0 {
		return "", false
	}
	return s.Tags[0], true
}

// String returns a short description for logs.
func (s *Student) String() string {
	return fmt.Sprintf("Student{ID: %s, Class: %s, Seat: %s, Name: %s}", s.ID, s.ClassName, s.SeatNumber, s.Name)
}

// Clone returns a deep copy of the student.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Tags != nil {
		clone.Tags = append([]string(nil), s.Tags...)
	}
	return &clone
}
