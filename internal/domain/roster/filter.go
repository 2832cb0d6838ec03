// Package roster holds the pure roster read operations: search and ordering.
package roster

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// Filter returns the students whose name or seat number contains query.
//
// The query is trimmed and matched case-insensitively. A blank query returns
// the input slice itself. Matches keep their relative order.
func Filter(students []*student.Student, query string) []*student.Student {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return students
	}

	out := make([]*student.Student, 0, len(students))
	for _, s := range students {
		if s == nil {
			continue
		}
		if strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.SeatNumber), q) {
			out = append(out, s)
		}
	}
	return out
}

// SortBySeat returns a copy of students ordered by seat number, comparing
// digit runs numerically so that "2" sorts before "10". Equal seats keep
// their input order.
func SortBySeat(students []*student.Student) []*student.Student {
	out := make([]*student.Student, len(students))
	copy(out, students)

	// Collators keep internal buffers; one per call keeps SortBySeat re-entrant.
	c := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(out, func(i, j int) bool {
		return c.CompareString(out[i].SeatNumber, out[j].SeatNumber) < 0
	})
	return out
}
