package engine

import (
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/graph"
	"github.com/specialistvlad/tempogrid/internal/node"
)

// store holds the event sets of one evaluation, keyed by node, together
// with the number of consumers that still need each of them. It lives for a
// single Evaluate call and is only touched by its goroutine.
type store struct {
	values    map[*node.Node]*eventset.EventSet
	remaining map[*node.Node]int
}

func newStore(size int) *store {
	return &store{
		values:    make(map[*node.Node]*eventset.EventSet, size),
		remaining: make(map[*node.Node]int, size),
	}
}

// track loads the use counts of every node the plan reads or returns.
func (s *store) track(plan *graph.Plan, outputs []*node.Node) {
	for _, step := range plan.Steps() {
		for _, n := range step.Operator.Inputs() {
			s.remaining[n] = plan.Uses(n)
		}
	}
	for _, out := range outputs {
		s.remaining[out] = plan.Uses(out)
	}
}

func (s *store) put(n *node.Node, es *eventset.EventSet) {
	s.values[n] = es
}

func (s *store) get(n *node.Node) (*eventset.EventSet, bool) {
	es, ok := s.values[n]
	return es, ok
}

func (s *store) has(n *node.Node) bool {
	_, ok := s.values[n]
	return ok
}

// consume records one use of n and reports whether n is no longer needed.
func (s *store) consume(n *node.Node) bool {
	s.remaining[n]--
	return s.remaining[n] <= 0
}

// unused reports whether a freshly produced node has no consumer at all.
func (s *store) unused(n *node.Node) bool {
	return s.remaining[n] <= 0
}

// drop forgets the value of n. It reports whether there was one.
func (s *store) drop(n *node.Node) bool {
	if _, ok := s.values[n]; !ok {
		return false
	}
	delete(s.values, n)
	return true
}
