// Package graph turns a set of requested result nodes into an execution plan.
//
// # What a Plan Holds
//
// Operators are not stored anywhere in a central structure: each output node
// points at the operator that created it, and each operator points at its
// input nodes. Build walks those links backward from the requested outputs
// and collects every operator that must run.
//
// The walk stops at "source" nodes. A source is any node the caller can
// provide concrete data for (usually the graph leaves, but an intermediate
// node works too, which lets callers cut a graph at a cached result). A leaf
// that is reached but is not a source cannot be computed and fails the build
// with errdefs.ErrUnboundInput.
//
// # Ordering
//
// Collected operators are assigned stable IDs ("op_0", "op_1", ...) in the
// order they were discovered and added to a dag.Graph, one edge per
// producer/consumer pair. The plan order is the dag's topological sort, so
// an operator always comes after every operator that produces one of its
// inputs. The result is deterministic for a given graph.
//
// # Last-Use Counting
//
// For every node the plan records how many operator inputs read it. The
// engine uses these counts to drop intermediate results as soon as their
// last consumer has run. Requested outputs are pinned and never reach zero.
package graph
