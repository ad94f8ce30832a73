package dag

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/tempogrid/internal/errdefs"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*vertex),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &vertex{
		id:    id,
		seq:   len(g.order),
		preds: make(map[string]*vertex),
		succs: make(map[string]*vertex),
	}
	g.order = append(g.order, id)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return errdefs.Newf(errdefs.ErrCyclicGraph, "", "", "self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.preds[fromID] = fromNode
	fromNode.succs[toID] = toNode

	return nil
}

// Dependencies returns the IDs the given node depends on, in insertion order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return idsOf(sortedVertices(n.preds)), nil
}

// Dependents returns the IDs that depend on the given node, in insertion order.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return idsOf(sortedVertices(n.succs)), nil
}

// DetectCycles checks the graph for any cycles. It returns an
// errdefs.ErrCyclicGraph error naming the first node found on a cycle.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and not part of a cycle.
	// temporary: in the recursion stack of the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *vertex) error
	visit = func(n *vertex) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return errdefs.Newf(errdefs.ErrCyclicGraph, "", "", "cycle detected involving node '%s'", n.id)
		}

		temporary[n.id] = true
		for _, dependent := range sortedVertices(n.succs) {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalSort returns every node ID such that each node comes after all
// of its dependencies. Among ready nodes, insertion order wins. A graph with
// a cycle fails with errdefs.ErrCyclicGraph.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	pending := make(map[string]int, len(g.nodes))
	var ready []*vertex
	for _, id := range g.order {
		n := g.nodes[id]
		pending[id] = len(n.preds)
		if len(n.preds) == 0 {
			ready = append(ready, n)
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].seq < ready[j].seq })
		n := ready[0]
		ready = ready[1:]
		sorted = append(sorted, n.id)
		for _, d := range sortedVertices(n.succs) {
			pending[d.id]--
			if pending[d.id] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		for _, id := range g.order {
			if pending[id] > 0 {
				return nil, errdefs.Newf(errdefs.ErrCyclicGraph, "", "", "cycle detected involving node '%s'", id)
			}
		}
	}
	return sorted, nil
}

func sortedVertices(m map[string]*vertex) []*vertex {
	out := make([]*vertex, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func idsOf(nodes []*vertex) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.id
	}
	return ids
}
