// Package grouping partitions a roster into fixed-size groups.
//
// Every strategy first derives a total order over the students and then cuts
// that order into ceil(n/size) groups. The strategies differ only in how the
// order is derived and, for the balanced strategy, how it is dealt out.
package grouping

import (
	"fmt"
	"strings"

	"github.com/roster-hub/classroom-roster/internal/domain/shared"
	"github.com/roster-hub/classroom-roster/internal/domain/student"
)

// MinGroupSize is the smallest group size accepted by the engine.
const MinGroupSize = 1

// Strategy selects how the roster order is derived.
type Strategy string

const (
	// StrategyRandom - uniformly random permutation, new on every call.
	StrategyRandom Strategy = "random"

	// StrategyHeterogeneous - strength-balanced groups, dealt serpentine-wise
	// from the roster sorted by descending familiarity.
	StrategyHeterogeneous Strategy = "heterogeneous"

	// StrategyInterest - students sharing a first tag end up adjacent and
	// therefore mostly in the same group.
	StrategyInterest Strategy = "interest"
)

// Strategies lists every supported strategy.
func Strategies() []Strategy {
	return []Strategy{StrategyRandom, StrategyHeterogeneous, StrategyInterest}
}

// IsValid reports whether s is a supported strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyRandom, StrategyHeterogeneous, StrategyInterest:
		return true
	default:
		return false
	}
}

// ParseStrategy parses a strategy name case-insensitively.
// "balanced" is accepted as an alias of heterogeneous.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if s == "balanced" {
		s = StrategyHeterogeneous
	}
	if !s.IsValid() {
		return "", shared.WrapError("grouping", "ParseStrategy", shared.ErrInvalidInput,
			fmt.Sprintf("unknown strategy %q", name), shared.ErrUnknownStrategy)
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUP
// ══════════════════════════════════════════════════════════════════════════════

// Group is one partition produced by the engine. Groups are transient and
// recomputed on demand.
type Group struct {
	// Number - 1-based position of the group in the result.
	Number int `json:"number"`

	// Members - students in assignment order.
	Members []*student.Student `json:"members"`
}

// Size returns the member count.
func (g Group) Size() int {
	return len(g.Members)
}

// TotalFamiliarity sums the familiarity of every member.
func (g Group) TotalFamiliarity() float64 {
	var sum float64
	for _, m := range g.Members {
		sum += m.Familiarity
	}
	return sum
}

// MemberIDs returns the member IDs in order.
func (g Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// GroupCount returns ceil(n/size), the number of groups any strategy yields.
func GroupCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
