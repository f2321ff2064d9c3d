// # internal/engine/grammar/grammar.go
package grammar

// Grammar is a decoded grammar definition: named rules plus the metadata
// that steers later generation stages.
type Grammar struct {
	Schema   string
	Name     string
	Inherits string

	Rules *RuleSet

	Extras      []*Rule
	Externals   []*Rule
	Inline      []string
	Precedences [][]PrecedenceEntry
	Conflicts   [][]string
	Reserved    map[string][]*Rule
	Word        string
	Supertypes  []string
}

// New returns an empty grammar with an initialized rule set.
func New(name string) *Grammar {
	return &Grammar{Name: name, Rules: NewRuleSet()}
}

// Define appends (or replaces) a rule and returns the grammar for chaining.
func (g *Grammar) Define(name string, rule *Rule) *Grammar {
	if g.Rules == nil {
		g.Rules = NewRuleSet()
	}
	g.Rules.Set(name, rule)
	return g
}

// EntryPoint is the first declared rule.
func (g *Grammar) EntryPoint() (string, bool) {
	if g == nil || g.Rules == nil || g.Rules.Len() == 0 {
		return "", false
	}
	return g.Rules.Names()[0], true
}

func (g *Grammar) IsInline(name string) bool {
	for _, n := range g.Inline {
		if n == name {
			return true
		}
	}
	return false
}

// ExternalNames returns the names declared by SYMBOL entries of externals.
// External scanners may define tokens that never appear in Rules.
func (g *Grammar) ExternalNames() []string {
	names := make([]string, 0, len(g.Externals))
	for _, ext := range g.Externals {
		if name, ok := ext.SymbolName(); ok {
			names = append(names, name)
		}
	}
	return names
}

// PrecedenceKind distinguishes the two forms of a precedence declaration entry.
type PrecedenceKind int

const (
	PrecedenceString PrecedenceKind = iota
	PrecedenceSymbol
)

// PrecedenceEntry is one element of an ordered precedence group.
type PrecedenceEntry struct {
	Kind  PrecedenceKind
	Value string // literal name or referenced rule name
}

func PrecedenceName(value string) PrecedenceEntry {
	return PrecedenceEntry{Kind: PrecedenceString, Value: value}
}

func PrecedenceRef(rule string) PrecedenceEntry {
	return PrecedenceEntry{Kind: PrecedenceSymbol, Value: rule}
}

// RuleSet is an insertion-ordered mapping from rule name to rule body.
type RuleSet struct {
	names []string
	rules map[string]*Rule
}

func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[string]*Rule)}
}

// Set stores rule under name, keeping the original position on replacement.
func (s *RuleSet) Set(name string, rule *Rule) {
	if _, exists := s.rules[name]; !exists {
		s.names = append(s.names, name)
	}
	s.rules[name] = rule
}

func (s *RuleSet) Get(name string) (*Rule, bool) {
	if s == nil {
		return nil, false
	}
	r, ok := s.rules[name]
	return r, ok
}

func (s *RuleSet) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns rule names in declaration order. The slice is a copy.
func (s *RuleSet) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Each calls fn for every rule in declaration order until fn returns false.
func (s *RuleSet) Each(fn func(name string, rule *Rule) bool) {
	if s == nil {
		return
	}
	for _, name := range s.names {
		if !fn(name, s.rules[name]) {
			return
		}
	}
}
