// # internal/ui/report/formats/dot.go
package formats

import (
	"fmt"
	"strings"

	"sapling/internal/engine/graph"
)

// DOTGenerator renders a rule reference graph as Graphviz source.
type DOTGenerator struct {
	graph   *graph.Graph
	metrics map[string]graph.RuleMetrics
}

func NewDOTGenerator(g *graph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

func (d *DOTGenerator) SetRuleMetrics(metrics map[string]graph.RuleMetrics) {
	d.metrics = metrics
}

// Generate draws every rule in declaration order. The entry rule is bold,
// rules unreachable from it are greyed out, and edges inside a recursion
// group are red. Symbols that are not rules appear as dashed nodes.
func (d *DOTGenerator) Generate(entry string) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph grammar {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	rules := d.graph.Nodes()
	groups := d.graph.RecursionGroups()
	recursive := make(map[string]bool)
	for _, group := range groups {
		for _, r := range group {
			recursive[r] = true
		}
	}
	recursionEdges := edgeSet(groups, d.graph.Edges)
	reachable := d.graph.Reachable(entry)

	var undeclared []string
	seenUndeclared := make(map[string]bool)
	for _, r := range rules {
		for _, sym := range d.graph.Undeclared(r) {
			if !seenUndeclared[sym] {
				seenUndeclared[sym] = true
				undeclared = append(undeclared, sym)
			}
		}
	}

	buf.WriteString("  subgraph cluster_rules {\n")
	buf.WriteString("    label=\"Rules\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, r := range rules {
		label := escapeLabel(ruleLabel(r, d.metrics))
		switch {
		case r == entry:
			buf.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", fillcolor=\"lightblue\", penwidth=2.5];\n", r, label))
		case !reachable[r]:
			buf.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", fillcolor=\"gainsboro\", color=\"grey\", style=\"rounded,filled,dashed\"];\n", r, label))
		case recursive[r]:
			buf.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", r, label))
		default:
			buf.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", color=\"darkslategrey\"];\n", r, label))
		}
	}
	buf.WriteString("  }\n\n")

	if len(undeclared) > 0 {
		buf.WriteString("  // Symbols that are not rules\n")
		buf.WriteString("  node [fillcolor=\"white\", style=\"dashed\", color=\"grey\"];\n")
		for _, sym := range undeclared {
			buf.WriteString(fmt.Sprintf("  \"%s\";\n", escapeLabel(sym)))
		}
		buf.WriteString("\n")
	}

	for _, from := range rules {
		for _, to := range d.graph.Edges(from) {
			if recursionEdges[from][to] {
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"red\", penwidth=2.5];\n", from, to))
			} else {
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"forestgreen\"];\n", from, to))
			}
		}
		for _, sym := range d.graph.Undeclared(from) {
			buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"grey\", style=dashed];\n", from, escapeLabel(sym)))
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}
