// Package inmemory is the in-process array backend. It registers one
// executor factory per operator key under the "inmemory" backend name.
//
// Executors rely on the guarantees established when the operator was built:
// inputs have the schemas of the operator's input nodes, and inputs that
// share a sampling hold the same index keys and timestamps.
package inmemory
