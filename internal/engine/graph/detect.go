// # internal/engine/graph/detect.go
package graph

import "sort"

// RecursionGroups returns the sets of mutually recursive rules: strongly
// connected components with more than one member, or a single rule that
// references itself. Members and groups follow declaration order.
func (g *Graph) RecursionGroups() [][]string {
	_, components := g.components()

	groups := make([][]string, 0)
	for _, comp := range components {
		if len(comp) == 1 && !g.selfReferencing(comp[0]) {
			continue
		}
		groups = append(groups, comp)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return g.declIndex(groups[i][0]) < g.declIndex(groups[j][0])
	})
	return groups
}

// IsRecursive reports whether name can reach itself through references.
func (g *Graph) IsRecursive(name string) bool {
	for _, group := range g.RecursionGroups() {
		for _, member := range group {
			if member == name {
				return true
			}
		}
	}
	return false
}

func (g *Graph) selfReferencing(name string) bool {
	for _, next := range g.edges[name] {
		if next == name {
			return true
		}
	}
	return false
}

// FindReferenceChain returns the shortest chain of rule references leading
// from one rule to another, if any.
func (g *Graph) FindReferenceChain(from, to string) ([]string, bool) {
	if !g.Has(from) || !g.Has(to) {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.edges[curr] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []string{to}
				for node := to; node != from; {
					p, ok := prev[node]
					if !ok {
						return nil, false
					}
					path = append(path, p)
					node = p
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}

// components runs Tarjan's algorithm with an explicit work stack. Components
// are emitted in reverse topological order of the condensation: every
// component appears after all components it can reach.
func (g *Graph) components() (map[string]int, [][]string) {
	index := 0
	stack := make([]string, 0, len(g.order))
	onStack := make(map[string]bool, len(g.order))
	indexByNode := make(map[string]int, len(g.order))
	lowLink := make(map[string]int, len(g.order))
	componentOf := make(map[string]int, len(g.order))
	components := make([][]string, 0)

	type frame struct {
		node string
		next int
	}

	visit := func(v string) {
		indexByNode[v] = index
		lowLink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true
	}

	for _, root := range g.order {
		if _, seen := indexByNode[root]; seen {
			continue
		}
		visit(root)
		work := []frame{{node: root}}

		for len(work) > 0 {
			top := &work[len(work)-1]
			v := top.node
			if top.next < len(g.edges[v]) {
				w := g.edges[v][top.next]
				top.next++
				if _, seen := indexByNode[w]; !seen {
					visit(w)
					work = append(work, frame{node: w})
				} else if onStack[w] && indexByNode[w] < lowLink[v] {
					lowLink[v] = indexByNode[w]
				}
				continue
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].node
				if lowLink[v] < lowLink[parent] {
					lowLink[parent] = lowLink[v]
				}
			}
			if lowLink[v] != indexByNode[v] {
				continue
			}

			component := make([]string, 0)
			for {
				last := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[last] = false
				component = append(component, last)
				if last == v {
					break
				}
			}
			sort.Slice(component, func(i, j int) bool {
				return g.declIndex(component[i]) < g.declIndex(component[j])
			})
			compID := len(components)
			components = append(components, component)
			for _, n := range component {
				componentOf[n] = compID
			}
		}
	}

	return componentOf, components
}
