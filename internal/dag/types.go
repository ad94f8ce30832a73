package dag

import "sync"

// Graph is a set of string-keyed vertices and the edges between them.
// It is safe for concurrent use.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*vertex
	// order holds IDs in insertion order; traversals follow it.
	order []string
}

// vertex is only reachable through Graph methods, by ID.
type vertex struct {
	id  string
	seq int
	// preds are the vertices this one depends on.
	preds map[string]*vertex
	// succs are the vertices that depend on this one.
	succs map[string]*vertex
}
