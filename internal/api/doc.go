// Package api is the user-facing entry point for building and running
// operator graphs.
//
// Every operator method of Runtime accepts operands that are either symbolic
// (*node.Node) or concrete (*eventset.EventSet):
//
//   - If any operand is symbolic, concrete operands are wrapped as graph
//     leaves and the method returns the operator's output node. Nothing is
//     computed. Leaves created this way are remembered by the Runtime and
//     bound automatically by Runtime.Evaluate.
//   - If every operand is concrete, the method builds the same one-operator
//     graph, evaluates it immediately and returns the resulting event set.
//     The graph is discarded.
//
// Both paths share the operator constructors, so validation is identical.
// BuildSymbolic and EvaluateEager expose the two paths directly.
package api
