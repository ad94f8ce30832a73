// Package engine evaluates symbolic operator graphs against concrete data.
//
// Evaluate receives the requested result nodes and a binding of source nodes
// to event sets. It asks the graph package for a plan, then runs every
// operator in topological order on a single goroutine: look up the
// operator's executor for the configured backend, hand it the already
// computed inputs, and store each produced output under its node.
//
// With ReleaseIntermediates set, a result is dropped from the working set as
// soon as its last consumer has run, which bounds peak memory on deep graphs
// without changing any result.
package engine
