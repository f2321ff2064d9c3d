package validate

import (
	"slices"

	"github.com/agnivade/levenshtein"
)

// closestNames returns up to limit candidates sharing the smallest edit
// distance to name, provided that distance stays within a third of the name's
// length (at least 2).
func closestNames(name string, candidates []string, limit int) []string {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}
	maxDistance := max(2, len(name)/3)

	best := maxDistance + 1
	closest := []string{}
	for _, c := range candidates {
		dist := levenshtein.ComputeDistance(name, c)
		switch {
		case dist < best:
			closest = []string{c}
			best = dist
		case dist == best:
			closest = append(closest, c)
		}
	}
	slices.Sort(closest)
	if len(closest) > limit {
		closest = closest[:limit]
	}
	return closest
}
