package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/dag"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
)

// Step is a single operator of a plan.
type Step struct {
	// ID is the plan-local identifier, e.g. "op_2".
	ID string
	// Operator is the validated operator to execute.
	Operator operator.Operator
}

// Plan is the ordered list of operators needed to compute a set of outputs.
type Plan struct {
	steps   []*Step
	sources []*node.Node
	outputs []*node.Node
	uses    map[*node.Node]int
}

// Steps returns the operators in execution order.
func (p *Plan) Steps() []*Step {
	return append([]*Step(nil), p.steps...)
}

// Sources returns the source nodes the plan reads, in discovery order.
func (p *Plan) Sources() []*node.Node {
	return append([]*node.Node(nil), p.sources...)
}

// Outputs returns the requested result nodes.
func (p *Plan) Outputs() []*node.Node {
	return append([]*node.Node(nil), p.outputs...)
}

// Uses returns how many operator inputs read n. Requested outputs count one
// extra use that is never released.
func (p *Plan) Uses(n *node.Node) int {
	return p.uses[n]
}

// Len returns the number of operators in the plan.
func (p *Plan) Len() int {
	return len(p.steps)
}

// collector holds the state of the backward walk.
type collector struct {
	isSource func(*node.Node) bool
	ids      map[operator.Operator]string
	ops      map[string]operator.Operator
	seen     map[*node.Node]bool
	sources  []*node.Node
	dag      *dag.Graph
}

// Build collects every operator reachable backward from outputs, stopping at
// nodes for which isSource reports true, and orders them topologically.
func Build(ctx context.Context, outputs []*node.Node, isSource func(*node.Node) bool) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting plan construction.", "outputs", len(outputs))

	c := &collector{
		isSource: isSource,
		ids:      make(map[operator.Operator]string),
		ops:      make(map[string]operator.Operator),
		seen:     make(map[*node.Node]bool),
		dag:      dag.New(),
	}

	// First pass: discover operators and sources.
	for _, out := range outputs {
		if out == nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "nil output node")
		}
		if err := c.visit(out); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: Operator discovery complete.", "operator_count", len(c.ops), "source_count", len(c.sources))

	// Second pass: link producers to consumers and count uses.
	uses := make(map[*node.Node]int)
	for _, id := range c.order() {
		op := c.ops[id]
		for _, slot := range sortedSlots(op.Inputs()) {
			in := op.Input(slot)
			uses[in]++
			if c.isSource(in) {
				continue
			}
			producer, err := creatorOf(in)
			if err != nil {
				return nil, err
			}
			if err := c.dag.AddEdge(c.ids[producer], id); err != nil {
				return nil, fmt.Errorf("failed to link %s to %s: %w", c.ids[producer], id, err)
			}
		}
	}
	for _, out := range outputs {
		uses[out]++
	}
	logger.Debug("Build: Operator linking complete.")

	// Third pass: order.
	sorted, err := c.dag.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("error ordering operator graph: %w", err)
	}
	steps := make([]*Step, len(sorted))
	for i, id := range sorted {
		steps[i] = &Step{ID: id, Operator: c.ops[id]}
	}

	logger.Debug("Build: Plan construction successful.", "steps", len(steps))
	return &Plan{
		steps:   steps,
		sources: c.sources,
		outputs: append([]*node.Node(nil), outputs...),
		uses:    uses,
	}, nil
}

// visit walks backward from n with an explicit stack so that deep graphs do
// not grow the goroutine stack.
func (c *collector) visit(n *node.Node) error {
	stack := []*node.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c.seen[cur] {
			continue
		}
		c.seen[cur] = true

		if c.isSource(cur) {
			c.sources = append(c.sources, cur)
			continue
		}
		if cur.IsLeaf() {
			return errdefs.Newf(errdefs.ErrUnboundInput, "", cur.Slot(), "graph input has no data bound to it")
		}
		op, err := creatorOf(cur)
		if err != nil {
			return err
		}
		if _, ok := c.ids[op]; ok {
			continue
		}
		id := fmt.Sprintf("op_%d", len(c.ids))
		c.ids[op] = id
		c.ops[id] = op
		c.dag.AddNode(id)

		slots := sortedSlots(op.Inputs())
		for i := len(slots) - 1; i >= 0; i-- {
			stack = append(stack, op.Input(slots[i]))
		}
	}
	return nil
}

func (c *collector) order() []string {
	out := make([]string, 0, len(c.ops))
	for i := 0; i < len(c.ops); i++ {
		out = append(out, fmt.Sprintf("op_%d", i))
	}
	return out
}

func creatorOf(n *node.Node) (operator.Operator, error) {
	op, ok := n.Creator().(operator.Operator)
	if !ok {
		return nil, errdefs.Newf(errdefs.ErrMalformedOperator, "", n.Slot(),
			"node creator %T is not an operator", n.Creator())
	}
	return op, nil
}

func sortedSlots(m map[string]*node.Node) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
