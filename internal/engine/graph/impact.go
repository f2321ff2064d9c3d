package graph

import (
	"errors"
	"fmt"
)

var ErrRuleNotFound = errors.New("rule not found")

// ReferenceReport lists the rules that depend on a target rule, directly or
// through a chain of references.
type ReferenceReport struct {
	Target              string
	DirectReferrers     []string
	TransitiveReferrers []string
}

type RuleNotFoundError struct {
	Rule string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrRuleNotFound, e.Rule)
}

func (e *RuleNotFoundError) Unwrap() error {
	return ErrRuleNotFound
}

// Referrers reports which rules would be affected by changing target.
func (g *Graph) Referrers(target string) (ReferenceReport, error) {
	if !g.Has(target) {
		return ReferenceReport{}, &RuleNotFoundError{Rule: target}
	}

	report := ReferenceReport{Target: target}
	direct := g.DirectReferrers(target)
	report.DirectReferrers = direct

	directSet := make(map[string]bool, len(direct))
	for _, r := range direct {
		directSet[r] = true
	}

	queue := append([]string(nil), direct...)
	seen := make(map[string]bool, len(queue)+1)
	seen[target] = true
	for _, r := range queue {
		seen[r] = true
	}

	transitive := make(map[string]bool)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range g.referrers[curr] {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			if !directSet[next] {
				transitive[next] = true
			}
		}
	}

	report.TransitiveReferrers = make([]string, 0, len(transitive))
	for _, name := range g.order {
		if transitive[name] {
			report.TransitiveReferrers = append(report.TransitiveReferrers, name)
		}
	}
	return report, nil
}
