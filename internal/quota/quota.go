// Package quota decides how many browser profiles each group still needs.
package quota

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoGroups is returned when the quota is computed over an empty group list.
var ErrNoGroups = errors.New("quota: no groups configured")

// ComputeNeeded splits maxTotal evenly across groups (integer division) and
// returns how many profiles each group is missing against that target.
//
// Groups with the fewest profiles are serviced first; ties keep the order of
// groups. The sum of the result never exceeds maxTotal and no value is
// negative. Groups absent from counts have zero profiles.
func ComputeNeeded(counts map[string]int, maxTotal int, groups []string) (map[string]int, error) {
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}
	if maxTotal < 0 {
		return nil, fmt.Errorf("quota: max total must not be negative, got %d", maxTotal)
	}

	target := maxTotal / len(groups)

	ordered := make([]string, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		return counts[ordered[i]] < counts[ordered[j]]
	})

	needed := make(map[string]int, len(groups))
	total := 0
	for _, name := range ordered {
		if total >= maxTotal {
			needed[name] = 0
			continue
		}
		additional := target - counts[name]
		if additional <= 0 {
			needed[name] = 0
			continue
		}
		if total+additional > maxTotal {
			additional = maxTotal - total
		}
		needed[name] = additional
		total += additional
	}
	return needed, nil
}

// Total sums an allocation.
func Total(needed map[string]int) int {
	sum := 0
	for _, n := range needed {
		sum += n
	}
	return sum
}
