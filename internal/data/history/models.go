package history

import "time"

const SchemaVersion = 2

type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeDecodeError Outcome = "decode_error"
)

// Run is one recorded validation of a grammar file.
type Run struct {
	ID          string        `json:"id"`
	Grammar     string        `json:"grammar"`
	Path        string        `json:"path"`
	ContentHash string        `json:"content_hash"`
	Timestamp   time.Time     `json:"timestamp"`
	Outcome     Outcome       `json:"outcome"`
	Error       string        `json:"error,omitempty"`
	RuleCount   int           `json:"rule_count"`
	Duration    time.Duration `json:"duration"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

type Diagnostic struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
}

// TrendPoint compares a run with the run recorded before it.
type TrendPoint struct {
	Run              Run `json:"run"`
	DiagnosticCount  int `json:"diagnostic_count"`
	DeltaDiagnostics int `json:"delta_diagnostics"`
	DeltaRules       int `json:"delta_rules"`
	// Changed is false when the grammar file content did not change.
	Changed bool `json:"changed"`
}

// BuildTrend orders runs oldest first and computes deltas against the
// previous run of the same grammar.
func BuildTrend(runs []Run) []TrendPoint {
	ordered := make([]Run, len(runs))
	copy(ordered, runs)
	sortRunsAscending(ordered)

	last := make(map[string]Run)
	points := make([]TrendPoint, 0, len(ordered))
	for _, run := range ordered {
		point := TrendPoint{Run: run, DiagnosticCount: len(run.Diagnostics), Changed: true}
		if prev, ok := last[run.Grammar]; ok {
			point.DeltaDiagnostics = len(run.Diagnostics) - len(prev.Diagnostics)
			point.DeltaRules = run.RuleCount - prev.RuleCount
			point.Changed = run.ContentHash != prev.ContentHash
		}
		last[run.Grammar] = run
		points = append(points, point)
	}
	return points
}
