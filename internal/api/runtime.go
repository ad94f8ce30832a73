package api

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"weak"

	"github.com/specialistvlad/tempogrid/internal/engine"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/inmemory"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/operators"
	"github.com/specialistvlad/tempogrid/internal/registry"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// Operand is a *node.Node or an *eventset.EventSet.
type Operand interface {
	Schema() *schema.Schema
}

// Builder constructs an operator from the symbolic form of a call's
// operands, in the order they were passed.
type Builder func(inputs []*node.Node) (operator.Operator, error)

// Runtime routes operator calls to graph construction or eager evaluation.
type Runtime struct {
	ops    *registry.Operators
	engine *engine.Engine

	mu      sync.Mutex
	wrapped map[weak.Pointer[node.Node]]*eventset.EventSet
}

// New creates a runtime over an operator registry and an engine.
func New(ops *registry.Operators, eng *engine.Engine) *Runtime {
	return &Runtime{
		ops:     ops,
		engine:  eng,
		wrapped: make(map[weak.Pointer[node.Node]]*eventset.EventSet),
	}
}

// NewDefault creates a runtime with every built-in operator and the
// in-memory backend. It panics if the built-in tables are inconsistent.
func NewDefault() *Runtime {
	r := registry.New().Load(&operators.Module{}, &inmemory.Module{})
	r.Freeze()
	if err := r.Validate(context.Background(), inmemory.Backend); err != nil {
		panic(err)
	}
	eng := engine.New(r.Implementations, engine.Options{
		Backend:              inmemory.Backend,
		ReleaseIntermediates: true,
	})
	return New(r.Operators, eng)
}

// Operators returns the operator registry the runtime builds with.
func (r *Runtime) Operators() *registry.Operators {
	return r.ops
}

// isSymbolic reports whether any operand is a node. Operands of other types
// are rejected.
func isSymbolic(args []Operand) (bool, error) {
	symbolic := false
	for i, a := range args {
		switch v := a.(type) {
		case *node.Node:
			if v == nil {
				return false, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "operand %d is a nil node", i)
			}
			symbolic = true
		case *eventset.EventSet:
			if v == nil {
				return false, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "operand %d is a nil event set", i)
			}
		default:
			return false, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "operand %d has unsupported type %T", i, a)
		}
	}
	return symbolic, nil
}

// leaves maps every operand to a node. Concrete operands become leaves that
// keep the event set's schema and sampling; the same event set passed twice
// yields the same leaf.
func leaves(args []Operand) ([]*node.Node, map[*node.Node]*eventset.EventSet) {
	nodes := make([]*node.Node, len(args))
	bindings := make(map[*node.Node]*eventset.EventSet)
	seen := make(map[*eventset.EventSet]*node.Node)
	for i, a := range args {
		switch v := a.(type) {
		case *node.Node:
			nodes[i] = v
		case *eventset.EventSet:
			leaf, ok := seen[v]
			if !ok {
				leaf = node.NewLeaf(fmt.Sprintf("input_%d", len(seen)), v.Schema(), v.SamplingID())
				seen[v] = leaf
				bindings[leaf] = v
			}
			nodes[i] = leaf
		}
	}
	return nodes, bindings
}

// BuildSymbolic builds the operator over the symbolic form of args. Concrete
// operands are wrapped as leaves and remembered for Evaluate.
func (r *Runtime) BuildSymbolic(args []Operand, build Builder) (operator.Operator, error) {
	if _, err := isSymbolic(args); err != nil {
		return nil, err
	}
	nodes, bindings := leaves(args)
	op, err := build(nodes)
	if err != nil {
		return nil, err
	}
	for leaf, es := range bindings {
		r.remember(leaf, es)
	}
	return op, nil
}

// EvaluateEager builds the operator over fresh leaves for args, evaluates it
// and returns the concrete outputs keyed by slot.
func (r *Runtime) EvaluateEager(ctx context.Context, args []*eventset.EventSet, build Builder) (map[string]*eventset.EventSet, error) {
	operands := make([]Operand, len(args))
	for i, a := range args {
		operands[i] = a
	}
	if _, err := isSymbolic(operands); err != nil {
		return nil, err
	}
	nodes, bindings := leaves(operands)
	op, err := build(nodes)
	if err != nil {
		return nil, err
	}

	slots := op.Definition().Outputs
	outputs := make([]*node.Node, len(slots))
	for i, s := range slots {
		outputs[i] = op.Output(s.Key)
	}
	results, err := r.engine.Evaluate(ctx, outputs, bindings)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*eventset.EventSet, len(slots))
	for i, s := range slots {
		out[s.Key] = results[i]
	}
	return out, nil
}

// invoke is the front-end every operator method goes through.
func (r *Runtime) invoke(ctx context.Context, args []Operand, build Builder) (map[string]Operand, error) {
	symbolic, err := isSymbolic(args)
	if err != nil {
		return nil, err
	}
	if symbolic {
		op, err := r.BuildSymbolic(args, build)
		if err != nil {
			return nil, err
		}
		out := make(map[string]Operand)
		for slot, n := range op.Outputs() {
			out[slot] = n
		}
		return out, nil
	}

	concrete := make([]*eventset.EventSet, len(args))
	for i, a := range args {
		concrete[i] = a.(*eventset.EventSet)
	}
	results, err := r.EvaluateEager(ctx, concrete, build)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Operand, len(results))
	for slot, es := range results {
		out[slot] = es
	}
	return out, nil
}

func (r *Runtime) invokeSingle(ctx context.Context, args []Operand, build Builder) (Operand, error) {
	out, err := r.invoke(ctx, args, build)
	if err != nil {
		return nil, err
	}
	return out["output"], nil
}

// Apply invokes any registered operator by key. Inputs are keyed by slot.
func (r *Runtime) Apply(ctx context.Context, key string, inputs map[string]Operand, attrs map[string]any) (map[string]Operand, error) {
	if _, err := r.ops.Lookup(key); err != nil {
		return nil, err
	}
	slots := make([]string, 0, len(inputs))
	args := make([]Operand, 0, len(inputs))
	for slot, in := range inputs {
		slots = append(slots, slot)
		args = append(args, in)
	}
	return r.invoke(ctx, args, func(nodes []*node.Node) (operator.Operator, error) {
		named := make(map[string]*node.Node, len(nodes))
		for i, n := range nodes {
			named[slots[i]] = n
		}
		return r.ops.Build(key, named, attrs)
	})
}

// Evaluate computes outputs of a symbolic graph. Leaves created from
// concrete operands by earlier calls are bound automatically unless
// bindings names them.
func (r *Runtime) Evaluate(ctx context.Context, outputs []*node.Node, bindings map[*node.Node]*eventset.EventSet) ([]*eventset.EventSet, error) {
	all := make(map[*node.Node]*eventset.EventSet, len(bindings))
	r.mu.Lock()
	for wp, es := range r.wrapped {
		if n := wp.Value(); n != nil {
			all[n] = es
		}
	}
	r.mu.Unlock()
	for n, es := range bindings {
		all[n] = es
	}
	return r.engine.Evaluate(ctx, outputs, all)
}

// remember records the data behind a leaf created from a concrete operand.
// The entry goes away once the leaf is garbage collected.
func (r *Runtime) remember(leaf *node.Node, es *eventset.EventSet) {
	wp := weak.Make(leaf)
	r.mu.Lock()
	r.wrapped[wp] = es
	r.mu.Unlock()
	runtime.AddCleanup(leaf, func(wp weak.Pointer[node.Node]) {
		r.mu.Lock()
		delete(r.wrapped, wp)
		r.mu.Unlock()
	}, wp)
}
