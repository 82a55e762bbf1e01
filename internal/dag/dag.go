package dag

import (
	"fmt"
	"sort"
)

// Graph is a collection of nodes and their dependencies.
type Graph struct {
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order remembers node insertion order so traversals are deterministic.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to enforce
// interaction with the graph via the public API (using string IDs), not by
// direct struct manipulation.
type node struct {
	id string
	// deps holds the set of nodes that this node depends on (successors of
	// the edge direction used by AddEdge).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node.
	dependents map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddEdge creates a directed edge from `fromID` to `toID`, recording that
// `fromID` depends on `toID`. Both nodes are created if missing. Self
// references are rejected.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}
	g.AddNode(fromID)
	g.AddNode(toID)

	fromNode := g.nodes[fromID]
	toNode := g.nodes[toID]
	fromNode.deps[toID] = toNode
	toNode.dependents[fromID] = fromNode
	return nil
}

// Dependencies returns a sorted slice of node IDs that the given node
// depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	sort.Strings(deps)
	return deps, nil
}

// Dependents returns a sorted slice of node IDs that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	dependents := make([]string, 0, len(n.dependents))
	for depID := range n.dependents {
		dependents = append(dependents, depID)
	}
	sort.Strings(dependents)
	return dependents, nil
}

// OutDegree returns the number of outgoing dependency edges of a node, or
// zero if the node does not exist.
func (g *Graph) OutDegree(id string) int {
	n, ok := g.nodes[id]
	if !ok {
		return 0
	}
	return len(n.deps)
}

// FindCycle searches the graph for a dependency cycle. It returns the nodes
// forming the first cycle found, in reference order, or nil if the graph is
// acyclic.
func (g *Graph) FindCycle() []string {
	// Classic depth-first search with three node states:
	// permanent: fully visited, known not to be part of a cycle.
	// temporary: currently on the recursion stack.
	// unvisited: everything else.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string

	var visit func(n *node) []string
	visit = func(n *node) []string {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			// Found a node already on our recursion stack. Slice the stack
			// from its first occurrence to obtain the full chain.
			for i, id := range stack {
				if id == n.id {
					return append([]string(nil), stack[i:]...)
				}
			}
			return []string{n.id}
		}

		temporary[n.id] = true
		stack = append(stack, n.id)

		for _, depID := range sortedKeys(n.deps) {
			if cycle := visit(n.deps[depID]); cycle != nil {
				return cycle
			}
		}

		stack = stack[:len(stack)-1]
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if cycle := visit(g.nodes[id]); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TopoSort returns the node IDs ordered such that every node appears after
// all nodes it depends on. An error carrying the offending cycle is returned
// if the graph is not acyclic.
func (g *Graph) TopoSort() ([]string, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &CycleError{Nodes: cycle}
	}

	// Kahn's algorithm over the dependency edges. Nodes with no remaining
	// dependencies are emitted in insertion order to keep output stable.
	indegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.deps)
	}

	var queue []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		n := g.nodes[id]
		for _, depID := range sortedKeys(n.dependents) {
			indegree[depID]--
			if indegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		return nil, &CycleError{Nodes: g.FindCycle()}
	}
	return sorted, nil
}

func sortedKeys(m map[string]*node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
