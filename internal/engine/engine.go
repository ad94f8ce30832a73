package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/graph"
	"github.com/specialistvlad/tempogrid/internal/metrics"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/registry"
	"github.com/specialistvlad/tempogrid/internal/sampling"
)

// Options configures an Engine.
type Options struct {
	// Backend selects the implementation set, e.g. "inmemory".
	Backend string
	// ReleaseIntermediates drops results after their last use.
	ReleaseIntermediates bool
	// Recorder receives execution metrics. Optional.
	Recorder metrics.Recorder
}

// Engine runs plans against one backend of an implementation registry.
type Engine struct {
	impls *registry.Implementations
	opts  Options
}

// New creates an engine over impls.
func New(impls *registry.Implementations, opts Options) *Engine {
	return &Engine{impls: impls, opts: opts}
}

// Backend returns the backend key the engine dispatches to.
func (e *Engine) Backend() string {
	return e.opts.Backend
}

// Evaluate computes the event set of every node in outputs, in order.
// Every source the graph reaches must be present in bindings; a bound event
// set must have exactly the schema of its node and is re-tagged with the
// node's sampling when the two differ.
func (e *Engine) Evaluate(ctx context.Context, outputs []*node.Node, bindings map[*node.Node]*eventset.EventSet) (results []*eventset.EventSet, err error) {
	ctx = ctxlog.With(ctx, "backend", e.opts.Backend)
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	steps := 0
	defer func() {
		if e.opts.Recorder != nil {
			e.opts.Recorder.ObserveEvaluation(steps, time.Since(start), err)
		}
	}()

	st := newStore(len(bindings))
	for n, es := range bindings {
		bound, err := bind(n, es)
		if err != nil {
			return nil, err
		}
		st.put(n, bound)
	}
	if err := checkSharedSamplings(bindings); err != nil {
		return nil, err
	}

	plan, err := graph.Build(ctx, outputs, st.has)
	if err != nil {
		return nil, err
	}
	logger.Debug("Evaluate: Plan ready.", "steps", plan.Len(), "sources", len(plan.Sources()))
	st.track(plan, outputs)

	for _, step := range plan.Steps() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluation cancelled before %s: %w", step.ID, err)
		}
		if err := e.run(ctx, step, st); err != nil {
			return nil, err
		}
		steps++

		if !e.opts.ReleaseIntermediates {
			continue
		}
		for _, in := range step.Operator.Inputs() {
			if st.consume(in) {
				e.release(ctx, st, in)
			}
		}
		for _, out := range step.Operator.Outputs() {
			if st.unused(out) {
				e.release(ctx, st, out)
			}
		}
	}

	results = make([]*eventset.EventSet, len(outputs))
	for i, out := range outputs {
		es, ok := st.get(out)
		if !ok {
			return nil, errdefs.Newf(errdefs.ErrMalformedOperator, creatorKey(out), out.Slot(), "requested output was not produced")
		}
		results[i] = es
	}
	logger.Debug("Evaluate: Finished.", "steps", steps, "duration", time.Since(start))
	return results, nil
}

// run executes a single step and stores its outputs in st.
func (e *Engine) run(ctx context.Context, step *graph.Step, st *store) (err error) {
	op := step.Operator
	key := op.Key()
	ctx = ctxlog.With(ctx, "operator", key, "id", step.ID)
	logger := ctxlog.FromContext(ctx)

	factory, err := e.impls.Lookup(key, e.opts.Backend)
	if err != nil {
		return errdefs.WithOperator(err, key)
	}
	exec, err := factory(op)
	if err != nil {
		return errdefs.WithOperator(err, key)
	}

	inputs := make(map[string]*eventset.EventSet, len(op.Inputs()))
	for slot, n := range op.Inputs() {
		es, ok := st.get(n)
		if !ok {
			return errdefs.Newf(errdefs.ErrUnboundInput, key, slot, "input was not computed")
		}
		inputs[slot] = es
	}

	logger.Debug("Executing operator.")
	start := time.Now()
	produced, err := exec.Execute(ctx, inputs)
	if e.opts.Recorder != nil {
		e.opts.Recorder.ObserveOperator(key, e.opts.Backend, time.Since(start), err)
	}
	if err != nil {
		return errdefs.WithOperator(err, key)
	}

	for slot, out := range op.Outputs() {
		es, ok := produced[slot]
		if !ok || es == nil {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, slot, "executor did not produce the output")
		}
		if !es.Schema().Equal(out.Schema()) {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, slot,
				"executor produced schema %s, expected %s", es.Schema(), out.Schema())
		}
		st.put(out, es.WithSampling(out.SamplingID()))
	}
	logger.Debug("Operator finished.", "duration", time.Since(start))
	return nil
}

func (e *Engine) release(ctx context.Context, st *store, n *node.Node) {
	if !st.drop(n) {
		return
	}
	ctxlog.FromContext(ctx).Debug("Released intermediate result.", "node", n.String())
	if e.opts.Recorder != nil {
		e.opts.Recorder.ObserveRelease()
	}
}

func bind(n *node.Node, es *eventset.EventSet) (*eventset.EventSet, error) {
	if n == nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "binding for nil node")
	}
	if es == nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", n.Slot(), "nil event set bound")
	}
	if !es.Schema().Equal(n.Schema()) {
		return nil, errdefs.Newf(errdefs.ErrSchemaMismatch, "", n.Slot(),
			"bound data has schema %s, node expects %s", es.Schema(), n.Schema())
	}
	return es.WithSampling(n.SamplingID()), nil
}

// checkSharedSamplings fails when two bound nodes share a sampling but their
// data disagree on keys or timestamps.
func checkSharedSamplings(bindings map[*node.Node]*eventset.EventSet) error {
	type bound struct {
		n  *node.Node
		es *eventset.EventSet
	}
	first := make(map[sampling.ID]bound, len(bindings))
	for n, es := range bindings {
		ref, ok := first[n.SamplingID()]
		if !ok {
			first[n.SamplingID()] = bound{n, es}
			continue
		}
		if ref.es == es {
			continue
		}
		if err := sameTimestamps(ref.es, es); err != nil {
			return errdefs.Newf(errdefs.ErrSamplingMismatch, "", n.Slot(),
				"bound data shares a sampling with %q but %v", ref.n.Slot(), err)
		}
	}
	return nil
}

func sameTimestamps(a, b *eventset.EventSet) error {
	if a.NumKeys() != b.NumKeys() {
		return fmt.Errorf("has %d index keys instead of %d", b.NumKeys(), a.NumKeys())
	}
	for _, key := range a.Keys() {
		da, _ := a.Get(key)
		db, ok := b.Get(key)
		if !ok {
			return fmt.Errorf("lacks index key %s", key)
		}
		if !slices.Equal(da.Timestamps(), db.Timestamps()) {
			return fmt.Errorf("has different timestamps for index key %s", key)
		}
	}
	return nil
}

func creatorKey(n *node.Node) string {
	if op, ok := n.Creator().(operator.Operator); ok {
		return op.Key()
	}
	return ""
}
