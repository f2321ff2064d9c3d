// # internal/engine/grammar/rule.go
package grammar

import "fmt"

// RuleType identifies which combinator a Rule node is.
type RuleType int

const (
	TypeBlank RuleType = iota
	TypeString
	TypePattern
	TypeSymbol
	TypeChoice
	TypeSeq
	TypeRepeat
	TypeRepeat1
	TypePrec
	TypePrecLeft
	TypePrecRight
	TypePrecDynamic
	TypeField
	TypeAlias
	TypeToken
	TypeImmediateToken
	TypeReserved
)

var typeNames = [...]string{
	TypeBlank:          "BLANK",
	TypeString:         "STRING",
	TypePattern:        "PATTERN",
	TypeSymbol:         "SYMBOL",
	TypeChoice:         "CHOICE",
	TypeSeq:            "SEQ",
	TypeRepeat:         "REPEAT",
	TypeRepeat1:        "REPEAT1",
	TypePrec:           "PREC",
	TypePrecLeft:       "PREC_LEFT",
	TypePrecRight:      "PREC_RIGHT",
	TypePrecDynamic:    "PREC_DYNAMIC",
	TypeField:          "FIELD",
	TypeAlias:          "ALIAS",
	TypeToken:          "TOKEN",
	TypeImmediateToken: "IMMEDIATE_TOKEN",
	TypeReserved:       "RESERVED",
}

func (t RuleType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("RuleType(%d)", int(t))
	}
	return typeNames[t]
}

// ParseRuleType maps a serialized type tag back to its RuleType.
func ParseRuleType(tag string) (RuleType, bool) {
	for i, name := range typeNames {
		if name == tag {
			return RuleType(i), true
		}
	}
	return 0, false
}

// IsPrecedence reports whether t is one of the precedence wrappers.
func (t RuleType) IsPrecedence() bool {
	switch t {
	case TypePrec, TypePrecLeft, TypePrecRight, TypePrecDynamic:
		return true
	}
	return false
}

// HasContent reports whether t wraps exactly one child rule.
func (t RuleType) HasContent() bool {
	switch t {
	case TypeRepeat, TypeRepeat1, TypePrec, TypePrecLeft, TypePrecRight, TypePrecDynamic,
		TypeField, TypeAlias, TypeToken, TypeImmediateToken, TypeReserved:
		return true
	}
	return false
}

// HasMembers reports whether t holds an ordered member list.
func (t RuleType) HasMembers() bool {
	return t == TypeChoice || t == TypeSeq
}

// Value is the scalar payload of a rule: literal text, a pattern source, an
// alias name, or a precedence that is either numeric or a named level.
type Value struct {
	Text  string
	Int   int
	IsInt bool
}

func TextValue(s string) Value { return Value{Text: s} }
func IntValue(n int) Value     { return Value{Int: n, IsInt: true} }

func (v Value) String() string {
	if v.IsInt {
		return fmt.Sprintf("%d", v.Int)
	}
	return v.Text
}

// Rule is a single node of a grammar rule tree. Which fields are meaningful
// depends on Type; children are owned exclusively by their parent and other
// rules are only ever referenced by name through TypeSymbol nodes.
type Rule struct {
	Type    RuleType
	Value   Value
	Name    string // SYMBOL target, FIELD name
	Named   bool   // ALIAS
	Flags   string // PATTERN regex flags
	Context string // RESERVED context name
	Content *Rule
	Members []*Rule
}

// TypeName returns the canonical serialized tag of the rule.
func (r *Rule) TypeName() string {
	return r.Type.String()
}

func (r *Rule) IsTerminal() bool {
	return r != nil && (r.Type == TypeString || r.Type == TypePattern)
}

func (r *Rule) IsSymbol() bool {
	return r != nil && r.Type == TypeSymbol
}

// SymbolName returns the referenced rule name of a SYMBOL node.
func (r *Rule) SymbolName() (string, bool) {
	if !r.IsSymbol() {
		return "", false
	}
	return r.Name, true
}

// Precedence returns the numeric level of a precedence wrapper. Wrappers that
// name a declared precedence instead of a number report false.
func (r *Rule) Precedence() (int, bool) {
	if r == nil || !r.Type.IsPrecedence() || !r.Value.IsInt {
		return 0, false
	}
	return r.Value.Int, true
}

func (r *Rule) StringValue() (string, bool) {
	if r == nil || r.Type != TypeString || r.Value.IsInt {
		return "", false
	}
	return r.Value.Text, true
}

func (r *Rule) PatternValue() (string, bool) {
	if r == nil || r.Type != TypePattern || r.Value.IsInt {
		return "", false
	}
	return r.Value.Text, true
}

// Children returns the direct child rules in declaration order.
func (r *Rule) Children() []*Rule {
	if r == nil {
		return nil
	}
	if r.Type.HasMembers() {
		return r.Members
	}
	if r.Type.HasContent() && r.Content != nil {
		return []*Rule{r.Content}
	}
	return nil
}

// Walk visits r and every nested rule in pre-order, left to right, using an
// explicit stack. Returning false from fn skips the children of that node.
func (r *Rule) Walk(fn func(*Rule) bool) {
	if r == nil {
		return
	}
	stack := []*Rule{r}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if curr == nil || !fn(curr) {
			continue
		}
		children := curr.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Symbols returns every referenced rule name in walk order, duplicates included.
func (r *Rule) Symbols() []string {
	var names []string
	r.Walk(func(n *Rule) bool {
		if name, ok := n.SymbolName(); ok {
			names = append(names, name)
		}
		return true
	})
	return names
}

func (r *Rule) String() string {
	if r == nil {
		return "<nil>"
	}
	switch r.Type {
	case TypeBlank:
		return "blank()"
	case TypeString:
		return fmt.Sprintf("%q", r.Value.Text)
	case TypePattern:
		return "/" + r.Value.Text + "/" + r.Flags
	case TypeSymbol:
		return "$." + r.Name
	case TypeField:
		return fmt.Sprintf("field(%s, %s)", r.Name, r.Content)
	case TypeAlias:
		return fmt.Sprintf("alias(%s, %q)", r.Content, r.Value.Text)
	}
	if r.Type.IsPrecedence() {
		return fmt.Sprintf("%s(%s, %s)", r.TypeName(), r.Value, r.Content)
	}
	if r.Type.HasMembers() {
		s := r.TypeName() + "("
		for i, m := range r.Members {
			if i > 0 {
				s += ", "
			}
			s += m.String()
		}
		return s + ")"
	}
	return fmt.Sprintf("%s(%s)", r.TypeName(), r.Content)
}
