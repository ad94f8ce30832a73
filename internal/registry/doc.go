// Package registry provides the central "glue" between operator definitions
// and the backends that execute them.
//
// Two independent tables live here. The Operators table maps an operator key
// (e.g. "COMBINE") to its static Definition and to the function that builds
// an operator instance from input nodes and attributes. The Implementations
// table maps an (operator key, backend) pair to the factory producing that
// backend's executor.
//
// Both tables are filled once during application startup by the registered
// Modules and are then frozen. Registering the same identity twice, or
// registering anything after Freeze, is a programming error and panics.
// Validate performs a parity check so that every defined operator can
// actually run on the selected backend.
package registry
