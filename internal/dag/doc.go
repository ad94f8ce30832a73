// Package dag provides a small string-keyed directed acyclic graph with
// cycle detection and a deterministic topological order. The execution
// planner uses it to order operators before any of them runs.
package dag
