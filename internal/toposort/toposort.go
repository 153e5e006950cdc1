// Package toposort orders notebook cells so every cell compiles after all of
// its prior cells.
package toposort

import (
	"fmt"
	"sort"
)

// Graph is a directed acyclic dependency graph over cell names.
type Graph struct {
	nodes map[string]bool
	edges map[string][]string // from -> to (prior -> dependent)
	inDeg map[string]int
}

// NewGraph initializes an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]bool),
		edges: make(map[string][]string),
		inDeg: make(map[string]int),
	}
}

// AddNode inserts a node. Returns false if it already exists.
func (g *Graph) AddNode(name string) bool {
	if g.nodes[name] {
		return false
	}

	g.nodes[name] = true

	return true
}

// AddEdge inserts the dependency edge from -> to. Both nodes are created if
// absent.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)

	g.edges[from] = append(g.edges[from], to)
	g.inDeg[to]++
}

// CycleError reports that the graph is not acyclic.
type CycleError struct {
	Remaining []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("toposort: dependency cycle through %v", e.Remaining)
}

// Sort returns a topological order over all nodes. The order is stable:
// among ready nodes, lexicographically smaller names come first, so repeated
// runs over the same notebook produce the same compile order.
func (g *Graph) Sort() ([]string, error) {
	inDeg := make(map[string]int, len(g.nodes))
	for name := range g.nodes {
		inDeg[name] = g.inDeg[name]
	}

	ready := make([]string, 0, len(g.nodes))

	for name := range g.nodes {
		if inDeg[name] == 0 {
			ready = append(ready, name)
		}
	}

	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))

	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		released := make([]string, 0, len(g.edges[name]))

		for _, to := range g.edges[name] {
			inDeg[to]--

			if inDeg[to] == 0 {
				released = append(released, to)
			}
		}

		sort.Strings(released)
		ready = mergeSorted(ready, released)
	}

	if len(order) != len(g.nodes) {
		var remaining []string

		for name := range g.nodes {
			if inDeg[name] > 0 {
				remaining = append(remaining, name)
			}
		}

		sort.Strings(remaining)

		return nil, &CycleError{Remaining: remaining}
	}

	return order, nil
}

// mergeSorted merges two sorted string slices.
func mergeSorted(a, b []string) []string {
	if len(b) == 0 {
		return a
	}

	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0

	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}

	out = append(out, a[i:]...)
	out = append(out, b[j:]...)

	return out
}
