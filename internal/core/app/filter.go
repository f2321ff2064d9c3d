package app

import "sapling/internal/engine/validate"

// filter drops diagnostics whose code is disabled or whose rule matches an
// ignore pattern.
func (s *Service) filter(report *validate.Report) *validate.Report {
	if len(s.disabled) == 0 && len(s.ignoreRules) == 0 {
		return report
	}
	return report.Filter(func(d validate.Diagnostic) bool {
		if s.disabled[d.Code] {
			return false
		}
		for _, g := range s.ignoreRules {
			if g.Match(d.Rule) {
				return false
			}
		}
		return true
	})
}
