package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
)

// Module is the interface that every operator or backend module implements
// to be registered.
type Module interface {
	Register(r *Registry)
}

// BuildFunc constructs a checked operator from its inputs and attributes.
// It runs every construction-time validation of the operator.
type BuildFunc func(inputs map[string]*node.Node, attrs map[string]any) (operator.Operator, error)

// OperatorEntry is the registered form of one operator type.
type OperatorEntry struct {
	Definition *operator.Definition
	Build      BuildFunc
}

// Operators maps operator keys to their definitions.
type Operators struct {
	entries map[string]*OperatorEntry
	frozen  bool
}

// NewOperators returns an empty, writable operator table.
func NewOperators() *Operators {
	return &Operators{entries: make(map[string]*OperatorEntry)}
}

// Register adds an operator type. It panics if the key is already taken or
// the table is frozen.
func (o *Operators) Register(def *operator.Definition, build BuildFunc) {
	if o.frozen {
		panic(fmt.Sprintf("operator '%s' registered after the registry was frozen", def.Key))
	}
	if _, exists := o.entries[def.Key]; exists {
		panic(fmt.Sprintf("operator with key '%s' already registered", def.Key))
	}
	if build == nil {
		panic(fmt.Sprintf("operator '%s' registered without a build function", def.Key))
	}
	slog.Debug("Registering operator.", "key", def.Key)
	o.entries[def.Key] = &OperatorEntry{Definition: def, Build: build}
}

// Lookup returns the entry for key or an ErrUnregisteredOperator error.
func (o *Operators) Lookup(key string) (*OperatorEntry, error) {
	e, ok := o.entries[key]
	if !ok {
		return nil, errdefs.Newf(errdefs.ErrUnregisteredOperator, key, "", "no operator definition with this key")
	}
	return e, nil
}

// Build looks up key and builds an operator instance with it.
func (o *Operators) Build(key string, inputs map[string]*node.Node, attrs map[string]any) (operator.Operator, error) {
	e, err := o.Lookup(key)
	if err != nil {
		return nil, err
	}
	return e.Build(inputs, attrs)
}

// Keys returns the registered keys in lexical order.
func (o *Operators) Keys() []string {
	keys := make([]string, 0, len(o.entries))
	for k := range o.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Freeze makes the table read-only.
func (o *Operators) Freeze() {
	o.frozen = true
}

// Frozen reports whether Freeze has been called.
func (o *Operators) Frozen() bool {
	return o.frozen
}

// Registry bundles both tables for a single application instance.
type Registry struct {
	Operators       *Operators
	Implementations *Implementations
}

// New creates a registry with two empty tables.
func New() *Registry {
	return &Registry{
		Operators:       NewOperators(),
		Implementations: NewImplementations(),
	}
}

// Load registers every module in order.
func (r *Registry) Load(modules ...Module) *Registry {
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Freeze makes both tables read-only.
func (r *Registry) Freeze() {
	r.Operators.Freeze()
	r.Implementations.Freeze()
}
