package formats

import (
	"fmt"
	"strings"

	"sapling/internal/engine/graph"
)

// MermaidGenerator renders a rule reference graph as a Mermaid flowchart.
type MermaidGenerator struct {
	graph   *graph.Graph
	metrics map[string]graph.RuleMetrics
}

func NewMermaidGenerator(g *graph.Graph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

func (m *MermaidGenerator) SetRuleMetrics(metrics map[string]graph.RuleMetrics) {
	m.metrics = metrics
}

func (m *MermaidGenerator) Generate(entry string) (string, error) {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	rules := m.graph.Nodes()
	ids := makeIDs(rules)
	groups := m.graph.RecursionGroups()
	recursionEdges := edgeSet(groups, m.graph.Edges)
	reachable := m.graph.Reachable(entry)

	for _, r := range rules {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[r], escapeLabel(strings.ReplaceAll(ruleLabel(r, m.metrics), "\\n", "<br/>"))))
	}
	b.WriteString("\n")

	var recursiveLinks []int
	link := 0
	for _, from := range rules {
		for _, to := range m.graph.Edges(from) {
			b.WriteString(fmt.Sprintf("  %s --> %s\n", ids[from], ids[to]))
			if recursionEdges[from][to] {
				recursiveLinks = append(recursiveLinks, link)
			}
			link++
		}
	}

	b.WriteString("\n")
	b.WriteString("  classDef entryNode fill:#dbeafe,stroke:#1d4ed8,stroke-width:2px,color:#000000;\n")
	b.WriteString("  classDef unreachableNode fill:#e5e7eb,stroke:#6b7280,stroke-dasharray:4 3,color:#374151;\n")
	if id, ok := ids[entry]; ok {
		b.WriteString(fmt.Sprintf("  class %s entryNode;\n", id))
	}
	var unreachable []string
	for _, r := range rules {
		if !reachable[r] {
			unreachable = append(unreachable, ids[r])
		}
	}
	if len(unreachable) > 0 {
		b.WriteString(fmt.Sprintf("  class %s unreachableNode;\n", strings.Join(unreachable, ",")))
	}
	for _, idx := range recursiveLinks {
		b.WriteString(fmt.Sprintf("  linkStyle %d stroke:#dc2626,stroke-width:2px;\n", idx))
	}
	return b.String(), nil
}
