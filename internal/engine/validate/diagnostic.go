package validate

import (
	"fmt"
	"strings"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Code identifies the kind of finding behind a diagnostic.
type Code string

const (
	CodeUnreachableRule    Code = "unreachable-rule"
	CodeLeftRecursion      Code = "left-recursion"
	CodeMultiplePrecedence Code = "multiple-precedence"
	CodeDanglingReference  Code = "dangling-reference"
	CodeLanguageMismatch   Code = "language-mismatch"
)

// Codes lists every diagnostic code in pass order.
func Codes() []Code {
	return []Code{
		CodeUnreachableRule,
		CodeLeftRecursion,
		CodeMultiplePrecedence,
		CodeDanglingReference,
		CodeLanguageMismatch,
	}
}

// Diagnostic is an advisory finding. Diagnostics never block acceptance of a
// grammar.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Levels   []int    `json:"levels,omitempty"`
	Related  []string `json:"related,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Report collects the diagnostics of one validation run, ordered by pass and
// then by rule declaration order.
type Report struct {
	Grammar     string       `json:"grammar"`
	EntryPoint  string       `json:"entry_point"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func (r *Report) Add(diags ...Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, diags...)
}

func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Diagnostics)
}

func (r *Report) ByCode(code Code) []Diagnostic {
	return r.Filter(func(d Diagnostic) bool { return d.Code == code }).Diagnostics
}

func (r *Report) BySeverity(sev Severity) []Diagnostic {
	return r.Filter(func(d Diagnostic) bool { return d.Severity == sev }).Diagnostics
}

// HasCode reports whether any diagnostic for rule carries code.
func (r *Report) HasCode(code Code, rule string) bool {
	for _, d := range r.ByCode(code) {
		if d.Rule == rule {
			return true
		}
	}
	return false
}

// Filter returns a copy of the report holding only the diagnostics keep accepts.
func (r *Report) Filter(keep func(Diagnostic) bool) *Report {
	if r == nil {
		return &Report{}
	}
	out := &Report{Grammar: r.Grammar, EntryPoint: r.EntryPoint, Diagnostics: make([]Diagnostic, 0, len(r.Diagnostics))}
	for _, d := range r.Diagnostics {
		if keep(d) {
			out.Diagnostics = append(out.Diagnostics, d)
		}
	}
	return out
}

// Counts tallies diagnostics per code.
func (r *Report) Counts() map[Code]int {
	counts := make(map[Code]int)
	if r == nil {
		return counts
	}
	for _, d := range r.Diagnostics {
		counts[d.Code]++
	}
	return counts
}
