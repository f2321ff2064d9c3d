package language

import (
	"fmt"
	"strings"

	"sapling/internal/engine/grammar"
	"sapling/internal/engine/validate"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// CrossCheck compares a grammar definition with a compiled language and
// reports visible rules, named aliases and fields the language does not know.
// Hidden rules (leading underscore) and inline rules never become nodes and
// are skipped.
func CrossCheck(g *grammar.Grammar, name string, lang *sitter.Language) []validate.Diagnostic {
	if g == nil || lang == nil {
		return nil
	}

	var diags []validate.Diagnostic
	reported := make(map[string]bool)
	report := func(rule, key, msg string) {
		if reported[key] {
			return
		}
		reported[key] = true
		diags = append(diags, validate.Diagnostic{
			Code:     validate.CodeLanguageMismatch,
			Severity: validate.SeverityWarning,
			Rule:     rule,
			Message:  msg,
			Related:  []string{name},
		})
	}

	g.Rules.Each(func(ruleName string, rule *grammar.Rule) bool {
		if visible(ruleName) && !g.IsInline(ruleName) && lang.IdForNodeKind(ruleName, true) == 0 {
			report(ruleName, "node:"+ruleName,
				fmt.Sprintf("rule '%s' is not a named node kind in language '%s'", ruleName, name))
		}

		rule.Walk(func(n *grammar.Rule) bool {
			switch n.Type {
			case grammar.TypeField:
				if lang.FieldIdForName(n.Name) == 0 {
					report(ruleName, "field:"+n.Name,
						fmt.Sprintf("field '%s' used in rule '%s' is not a field of language '%s'", n.Name, ruleName, name))
				}
			case grammar.TypeAlias:
				if n.Named && lang.IdForNodeKind(n.Value.Text, true) == 0 {
					report(ruleName, "node:"+n.Value.Text,
						fmt.Sprintf("alias '%s' in rule '%s' is not a named node kind in language '%s'", n.Value.Text, ruleName, name))
				}
			}
			return true
		})
		return true
	})
	return diags
}

func visible(ruleName string) bool {
	return ruleName != "" && !strings.HasPrefix(ruleName, "_")
}
