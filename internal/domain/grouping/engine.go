package grouping

import (
	"math/rand/v2"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// DefaultLocale orders interest tags the way the rosters are written.
var DefaultLocale = language.TraditionalChinese

// Engine runs the grouping strategies. The zero configuration draws random
// numbers from the goroutine-safe package source and collates tags with
// DefaultLocale, so a single Engine may be shared by concurrent requests.
// An Engine built WithRand is only as safe as the *rand.Rand it was given.
type Engine struct {
	rng    *rand.Rand
	locale language.Tag
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand makes the random strategy reproducible.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithLocale sets the collation locale of the interest strategy.
func WithLocale(tag language.Tag) Option {
	return func(e *Engine) { e.locale = tag }
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{locale: DefaultLocale}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Group partitions students into ceil(n/size) groups with the given strategy.
//
// Every student appears in exactly one group; nil entries are ignored. The last
// group of the random and interest strategies may be short. An empty roster
// yields an empty result, a size below MinGroupSize fails with
// shared.ErrInvalidGroupSize.
func (e *Engine) Group(strategy Strategy, students []*student.Student, size int) ([]Group, error) {
	if size < MinGroupSize {
		return nil, shared.ErrInvalidGroupSize
	}
	if !strategy.IsValid() {
		return nil, shared.ErrUnknownStrategy
	}

	roster := compact(students)
	if len(roster) == 0 {
		return []Group{}, nil
	}

	switch strategy {
	case StrategyRandom:
		return chunk(e.shuffle(roster), size), nil
	case StrategyHeterogeneous:
		return serpentine(byFamiliarityDesc(roster), GroupCount(len(roster), size)), nil
	default:
		return chunk(e.byFirstTag(roster), size), nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ORDERINGS
// ══════════════════════════════════════════════════════════════════════════════

// shuffle returns a uniformly random permutation (Fisher-Yates).
func (e *Engine) shuffle(roster []*student.Student) []*student.Student {
	swap := func(i, j int) { roster[i], roster[j] = roster[j], roster[i] }
	if e.rng != nil {
		e.rng.Shuffle(len(roster), swap)
	} else {
		rand.Shuffle(len(roster), swap)
	}
	return roster
}

// byFamiliarityDesc sorts strongest first; ties keep roster order.
func byFamiliarityDesc(roster []*student.Student) []*student.Student {
	sort.SliceStable(roster, func(i, j int) bool {
		return roster[i].Familiarity > roster[j].Familiarity
	})
	return roster
}

// byFirstTag sorts by first tag under the engine locale; untagged students go
// last and ties keep roster order.
func (e *Engine) byFirstTag(roster []*student.Student) []*student.Student {
	c := collate.New(e.locale)
	sort.SliceStable(roster, func(i, j int) bool {
		a, okA := roster[i].FirstTag()
		b, okB := roster[j].FirstTag()
		switch {
		case okA != okB:
			return okA
		case !okA:
			return false
		default:
			return c.CompareString(a, b) < 0
		}
	})
	return roster
}

// ══════════════════════════════════════════════════════════════════════════════
// DISTRIBUTION
// ══════════════════════════════════════════════════════════════════════════════

// chunk cuts order into consecutive slices of size.
func chunk(order []*student.Student, size int) []Group {
	groups := make([]Group, 0, GroupCount(len(order), size))
	for start := 0; start < len(order); start += size {
		end := min(start+size, len(order))
		groups = append(groups, Group{
			Number:  len(groups) + 1,
			Members: order[start:end:end],
		})
	}
	return groups
}

// serpentine deals order into count groups row by row, reversing the column
// direction on every odd row: 0,1,..,G-1 then G-1,..,1,0 and so on.
func serpentine(order []*student.Student, count int) []Group {
	groups := make([]Group, count)
	for i := range groups {
		groups[i].Number = i + 1
	}

	for i, s := range order {
		row := i / count
		col := i % count
		if row%2 == 1 {
			col = count - 1 - col
		}
		groups[col].Members = append(groups[col].Members, s)
	}
	return groups
}

// compact copies the roster without nil entries so orderings never touch the
// caller's slice.
func compact(students []*student.Student) []*student.Student {
	out := make([]*student.Student, 0, len(students))
	for _, s := range students {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
