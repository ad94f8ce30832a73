// Package operators implements the catalogue of graph operators.
//
// Each operator type has a Definition, a constructor that performs every
// construction-time check and returns a checked instance, and a build
// function used to reconstruct instances generically from slot maps (for
// example when a graph file is loaded). Module registers all of them.
//
// Operators never touch data. Backends look up the concrete operator type
// to read the parsed arguments they need.
package operators
