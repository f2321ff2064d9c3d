package graph

import "sort"

type RuleMetrics struct {
	Depth           int // longest reference chain over the recursion-group condensation
	FanIn           int
	FanOut          int
	Recursive       bool
	ImportanceScore float64
}

// Metrics computes per-rule structural metrics.
func (g *Graph) Metrics() map[string]RuleMetrics {
	componentOf, components := g.components()

	componentEdges := make(map[int]map[int]bool, len(components))
	for _, from := range g.order {
		fromComp := componentOf[from]
		for _, to := range g.edges[from] {
			toComp := componentOf[to]
			if fromComp == toComp {
				continue
			}
			if componentEdges[fromComp] == nil {
				componentEdges[fromComp] = make(map[int]bool)
			}
			componentEdges[fromComp][toComp] = true
		}
	}

	// Components arrive in reverse topological order, so every successor's
	// depth is already known when a component is reached.
	depthByComp := make(map[int]int, len(components))
	for comp := range components {
		maxDepth := 0
		for next := range componentEdges[comp] {
			if candidate := 1 + depthByComp[next]; candidate > maxDepth {
				maxDepth = candidate
			}
		}
		depthByComp[comp] = maxDepth
	}

	metrics := make(map[string]RuleMetrics, len(g.order))
	for _, name := range g.order {
		comp := componentOf[name]
		fi := len(g.referrers[name])
		fo := len(g.edges[name])
		metrics[name] = RuleMetrics{
			Depth:           depthByComp[comp],
			FanIn:           fi,
			FanOut:          fo,
			Recursive:       len(components[comp]) > 1 || g.selfReferencing(name),
			ImportanceScore: CalculateImportanceScore(fi, fo, depthByComp[comp]),
		}
	}
	return metrics
}

// CalculateImportanceScore ranks how central a rule is to the grammar:
//
//	Score = (FanIn * 2) + (FanOut * 1) + (Depth * 0.5)
func CalculateImportanceScore(fanIn, fanOut, depth int) float64 {
	return float64(fanIn*2) + float64(fanOut) + float64(depth)*0.5
}

type Hotspot struct {
	Rule    string
	Metrics RuleMetrics
}

// TopImportance returns the n most central rules, ties broken by declaration order.
func (g *Graph) TopImportance(n int) []Hotspot {
	if n <= 0 {
		return nil
	}
	metrics := g.Metrics()
	hotspots := make([]Hotspot, 0, len(metrics))
	for _, name := range g.order {
		hotspots = append(hotspots, Hotspot{Rule: name, Metrics: metrics[name]})
	}
	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].Metrics.ImportanceScore > hotspots[j].Metrics.ImportanceScore
	})
	if len(hotspots) > n {
		return hotspots[:n]
	}
	return hotspots
}
