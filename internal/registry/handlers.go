package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/operator"
)

// Executor runs one operator instance on concrete data. inputs holds one
// event set per populated input slot; the result holds one event set per
// declared output slot.
type Executor interface {
	Execute(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error)
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
	return f(ctx, inputs)
}

// ExecutorFactory binds an executor to a checked operator instance.
type ExecutorFactory func(op operator.Operator) (Executor, error)

type implKey struct {
	operator string
	backend  string
}

// Implementations maps (operator key, backend) pairs to executor factories.
type Implementations struct {
	entries map[implKey]ExecutorFactory
	frozen  bool
}

// NewImplementations returns an empty, writable implementation table.
func NewImplementations() *Implementations {
	return &Implementations{entries: make(map[implKey]ExecutorFactory)}
}

// Register adds the executor factory of an operator on a backend. It panics
// if the pair is already taken or the table is frozen.
func (im *Implementations) Register(operatorKey, backend string, factory ExecutorFactory) {
	if im.frozen {
		panic(fmt.Sprintf("implementation of '%s' for backend '%s' registered after the registry was frozen", operatorKey, backend))
	}
	k := implKey{operator: operatorKey, backend: backend}
	if _, exists := im.entries[k]; exists {
		panic(fmt.Sprintf("implementation of '%s' for backend '%s' already registered", operatorKey, backend))
	}
	if factory == nil {
		panic(fmt.Sprintf("implementation of '%s' for backend '%s' has no factory", operatorKey, backend))
	}
	slog.Debug("Registering operator implementation.", "key", operatorKey, "backend", backend)
	im.entries[k] = factory
}

// Lookup returns the factory for the pair or an ErrUnregisteredOperator error.
func (im *Implementations) Lookup(operatorKey, backend string) (ExecutorFactory, error) {
	f, ok := im.entries[implKey{operator: operatorKey, backend: backend}]
	if !ok {
		return nil, errdefs.Newf(errdefs.ErrUnregisteredOperator, operatorKey, "", "no implementation for backend %q", backend)
	}
	return f, nil
}

// Keys returns the operator keys implemented on backend, sorted.
func (im *Implementations) Keys(backend string) []string {
	var keys []string
	for k := range im.entries {
		if k.backend == backend {
			keys = append(keys, k.operator)
		}
	}
	sort.Strings(keys)
	return keys
}

// Backends returns every backend with at least one implementation, sorted.
func (im *Implementations) Backends() []string {
	seen := make(map[string]bool)
	var out []string
	for k := range im.entries {
		if !seen[k.backend] {
			seen[k.backend] = true
			out = append(out, k.backend)
		}
	}
	sort.Strings(out)
	return out
}

// Freeze makes the table read-only.
func (im *Implementations) Freeze() {
	im.frozen = true
}
