// # internal/engine/graph/graph.go
package graph

import (
	"sapling/internal/engine/grammar"
	"sapling/internal/shared/observability"
)

// Graph is the rule reference graph of a grammar: one node per rule, one
// edge per distinct symbol reference. It is immutable once built.
type Graph struct {
	order []string       // declaration order
	index map[string]int // rule name -> declaration index

	// Relationships
	edges      map[string][]string // from -> distinct targets, first-reference order
	referrers  map[string][]string // to -> distinct sources, declaration order
	undeclared map[string][]string // from -> targets that are not rules
}

// Build walks every rule body once and records its symbol references.
func Build(g *grammar.Grammar) *Graph {
	gr := &Graph{
		index:      make(map[string]int),
		edges:      make(map[string][]string),
		referrers:  make(map[string][]string),
		undeclared: make(map[string][]string),
	}
	if g == nil || g.Rules == nil {
		return gr
	}

	g.Rules.Each(func(name string, _ *grammar.Rule) bool {
		gr.index[name] = len(gr.order)
		gr.order = append(gr.order, name)
		return true
	})

	edgeCount := 0
	g.Rules.Each(func(name string, rule *grammar.Rule) bool {
		seen := make(map[string]bool)
		for _, target := range rule.Symbols() {
			if seen[target] {
				continue
			}
			seen[target] = true
			if _, ok := gr.index[target]; !ok {
				gr.undeclared[name] = append(gr.undeclared[name], target)
				continue
			}
			gr.edges[name] = append(gr.edges[name], target)
			gr.referrers[target] = append(gr.referrers[target], name)
			edgeCount++
		}
		return true
	})

	observability.GraphNodes.Set(float64(len(gr.order)))
	observability.GraphEdges.Set(float64(edgeCount))
	return gr
}

// Nodes returns rule names in declaration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

func (g *Graph) NodeCount() int {
	return len(g.order)
}

func (g *Graph) EdgeCount() int {
	n := 0
	for _, targets := range g.edges {
		n += len(targets)
	}
	return n
}

// Edges returns the rules referenced by name.
func (g *Graph) Edges(name string) []string {
	return append([]string(nil), g.edges[name]...)
}

// DirectReferrers returns the rules whose bodies reference name.
func (g *Graph) DirectReferrers(name string) []string {
	return append([]string(nil), g.referrers[name]...)
}

// Undeclared returns references from name to symbols that are not rules.
func (g *Graph) Undeclared(name string) []string {
	return append([]string(nil), g.undeclared[name]...)
}

// Reachable returns every rule reachable from roots, roots included. Roots
// that are not rules are ignored. A visited set bounds the walk on cycles.
func (g *Graph) Reachable(roots ...string) map[string]bool {
	visited := make(map[string]bool, len(g.order))
	stack := make([]string, 0, len(roots))
	for _, root := range roots {
		if g.Has(root) {
			stack = append(stack, root)
		}
	}

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[curr] {
			continue
		}
		visited[curr] = true
		for _, next := range g.edges[curr] {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return visited
}

// Unreachable returns, in declaration order, the rules not reachable from roots.
func (g *Graph) Unreachable(roots ...string) []string {
	visited := g.Reachable(roots...)
	out := make([]string, 0)
	for _, name := range g.order {
		if !visited[name] {
			out = append(out, name)
		}
	}
	return out
}

func (g *Graph) declIndex(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	return len(g.order)
}
