package validate

import (
	"fmt"
	"sort"

	"sapling/internal/engine/grammar"
	"sapling/internal/engine/graph"
)

// checkUndefinedSymbols stops at the first SYMBOL whose name is not a rule,
// walking rules in declaration order and then the extras, externals and
// reserved lists.
func checkUndefinedSymbols(g *grammar.Grammar, opts Options) error {
	externals := make(map[string]bool)
	for _, name := range g.ExternalNames() {
		externals[name] = true
	}
	defined := func(name string) bool {
		return g.Rules.Has(name)
	}
	definedOrExternal := func(name string) bool {
		return g.Rules.Has(name) || externals[name]
	}
	inRules := defined
	if opts.ExternalSymbols {
		inRules = definedOrExternal
	}

	var err error
	g.Rules.Each(func(name string, rule *grammar.Rule) bool {
		err = firstUndefined(g, name, rule, inRules, opts)
		return err == nil
	})
	if err != nil {
		return err
	}

	for _, extra := range g.Extras {
		if err := firstUndefined(g, "extras", extra, definedOrExternal, opts); err != nil {
			return err
		}
	}
	for _, ext := range g.Externals {
		if ext.IsSymbol() {
			continue
		}
		if err := firstUndefined(g, "externals", ext, definedOrExternal, opts); err != nil {
			return err
		}
	}

	contexts := make([]string, 0, len(g.Reserved))
	for ctx := range g.Reserved {
		contexts = append(contexts, ctx)
	}
	sort.Strings(contexts)
	for _, ctx := range contexts {
		for _, word := range g.Reserved[ctx] {
			if err := firstUndefined(g, "reserved."+ctx, word, definedOrExternal, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

func firstUndefined(g *grammar.Grammar, owner string, rule *grammar.Rule, known func(string) bool, opts Options) error {
	var missing string
	found := false
	rule.Walk(func(n *grammar.Rule) bool {
		if found {
			return false
		}
		if name, ok := n.SymbolName(); ok && !known(name) {
			missing, found = name, true
			return false
		}
		return true
	})
	if !found {
		return nil
	}
	return &ValidationError{
		Rule:        owner,
		Symbol:      missing,
		Suggestions: closestNames(missing, g.Rules.Names(), opts.MaxSuggestions),
	}
}

// checkReachability reports rules that cannot be reached from the entry
// point. Inline rules are exempt.
func checkReachability(g *grammar.Grammar, rg *graph.Graph, entry string, opts Options) []Diagnostic {
	roots := []string{entry}
	if opts.AuxiliaryRoots {
		roots = append(roots, auxiliaryRoots(g)...)
	}

	var diags []Diagnostic
	for _, name := range rg.Unreachable(roots...) {
		if g.IsInline(name) {
			continue
		}
		diags = append(diags, Diagnostic{
			Code:     CodeUnreachableRule,
			Severity: SeverityWarning,
			Rule:     name,
			Message:  fmt.Sprintf("unreachable rule '%s'", name),
			Related:  []string{entry},
		})
	}
	return diags
}

func auxiliaryRoots(g *grammar.Grammar) []string {
	var roots []string
	for _, list := range [][]*grammar.Rule{g.Extras, g.Externals} {
		for _, r := range list {
			roots = append(roots, r.Symbols()...)
		}
	}
	if g.Word != "" {
		roots = append(roots, g.Word)
	}
	return append(roots, g.Supertypes...)
}

func checkLeftRecursion(g *grammar.Grammar) []Diagnostic {
	var diags []Diagnostic
	g.Rules.Each(func(name string, rule *grammar.Rule) bool {
		if hasImmediateLeftRecursion(rule, name) {
			diags = append(diags, Diagnostic{
				Code:     CodeLeftRecursion,
				Severity: SeverityInfo,
				Rule:     name,
				Message:  fmt.Sprintf("rule '%s' has left recursion", name),
			})
		}
		return true
	})
	return diags
}

// hasImmediateLeftRecursion reports whether rule can start by referencing
// target: only the first member of a SEQ counts, any CHOICE alternative
// counts, wrappers are transparent except the repeat and token families.
func hasImmediateLeftRecursion(rule *grammar.Rule, target string) bool {
	stack := []*grammar.Rule{rule}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if curr == nil {
			continue
		}
		switch curr.Type {
		case grammar.TypeSymbol:
			if curr.Name == target {
				return true
			}
		case grammar.TypeSeq:
			if len(curr.Members) > 0 {
				stack = append(stack, curr.Members[0])
			}
		case grammar.TypeChoice:
			stack = append(stack, curr.Members...)
		case grammar.TypePrec, grammar.TypePrecLeft, grammar.TypePrecRight, grammar.TypePrecDynamic,
			grammar.TypeField, grammar.TypeAlias, grammar.TypeReserved:
			stack = append(stack, curr.Content)
		}
	}
	return false
}

func checkPrecedence(g *grammar.Grammar) []Diagnostic {
	var diags []Diagnostic
	g.Rules.Each(func(name string, rule *grammar.Rule) bool {
		levels := precedenceLevels(rule)
		if len(levels) > 1 {
			diags = append(diags, Diagnostic{
				Code:     CodeMultiplePrecedence,
				Severity: SeverityWarning,
				Rule:     name,
				Message:  fmt.Sprintf("rule '%s' has multiple precedence levels: %v", name, levels),
				Levels:   levels,
			})
		}
		return true
	})
	return diags
}

// precedenceLevels returns the distinct numeric PREC, PREC_LEFT and
// PREC_RIGHT levels found in rule, in walk order.
func precedenceLevels(rule *grammar.Rule) []int {
	var levels []int
	seen := make(map[int]bool)
	rule.Walk(func(n *grammar.Rule) bool {
		switch n.Type {
		case grammar.TypePrec, grammar.TypePrecLeft, grammar.TypePrecRight:
			if level, ok := n.Precedence(); ok && !seen[level] {
				seen[level] = true
				levels = append(levels, level)
			}
		}
		return true
	})
	return levels
}

// checkMetadata reports grammar-level name lists that point at nothing.
func checkMetadata(g *grammar.Grammar) []Diagnostic {
	externals := make(map[string]bool)
	for _, name := range g.ExternalNames() {
		externals[name] = true
	}
	var diags []Diagnostic
	check := func(section, name string) {
		if g.Rules.Has(name) || externals[name] {
			return
		}
		diags = append(diags, Diagnostic{
			Code:     CodeDanglingReference,
			Severity: SeverityWarning,
			Rule:     name,
			Message:  fmt.Sprintf("%s references '%s', which is not a rule", section, name),
			Related:  []string{section},
		})
	}

	for _, name := range g.Inline {
		check("inline", name)
	}
	if g.Word != "" {
		check("word", g.Word)
	}
	for _, name := range g.Supertypes {
		check("supertypes", name)
	}
	for _, group := range g.Conflicts {
		for _, name := range group {
			check("conflicts", name)
		}
	}
	for _, group := range g.Precedences {
		for _, entry := range group {
			if entry.Kind == grammar.PrecedenceSymbol {
				check("precedences", entry.Value)
			}
		}
	}
	return diags
}
