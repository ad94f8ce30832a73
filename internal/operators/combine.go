package operators

import (
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
)

// MaxCombineArguments is the exclusive upper bound on COMBINE inputs.
const MaxCombineArguments = 30

// CombineDefinition declares input_0..input_29 of which the first two are required.
var CombineDefinition = &operator.Definition{
	Key:     "COMBINE",
	Inputs:  variadicInputDefs(MaxCombineArguments),
	Outputs: []operator.OutputDef{{Key: "output"}},
}

// Combine merges the events of several inputs with the same features.
// Events with equal timestamps are kept, in argument order.
type Combine struct {
	operator.Base
	args []*node.Node
}

// NewCombine builds a COMBINE operator over 2 to 29 inputs. Every input
// must have the same feature names and dtypes as the first one and the
// same index. The output uses the first input's feature order and is a
// unix timestamp only if all inputs are.
func NewCombine(inputs ...*node.Node) (*Combine, error) {
	key := CombineDefinition.Key
	if len(inputs) < 2 {
		return nil, errdefs.Newf(errdefs.ErrArgumentCount, key, "", "at least two arguments should be provided, got %d", len(inputs))
	}
	if len(inputs) >= MaxCombineArguments {
		return nil, errdefs.Newf(errdefs.ErrArgumentCount, key, "", "too many arguments: %d, the limit is %d", len(inputs), MaxCombineArguments-1)
	}

	op := &Combine{args: inputs}
	op.Init(op, CombineDefinition)

	first := inputs[0]
	allUnix := true
	for i, in := range inputs {
		slot := InputSlot(i)
		if err := notNil(key, slot, in); err != nil {
			return nil, err
		}
		if err := first.Schema().CheckCompatibleFeatures(in.Schema(), false); err != nil {
			return nil, errdefs.WithSlot(errdefs.WithOperator(err, key), slot)
		}
		if err := first.Schema().CheckCompatibleIndex(in.Schema(), "all inputs"); err != nil {
			return nil, errdefs.WithSlot(errdefs.WithOperator(err, key), slot)
		}
		allUnix = allUnix && in.Schema().IsUnixTimestamp()
		op.AddInput(slot, in)
	}

	if _, err := op.NewOutputNewSampling("output", first.Schema().Features(), first.Schema().Indexes(), allUnix); err != nil {
		return nil, err
	}
	return op, op.Check()
}

// Args returns the inputs in argument order.
func (c *Combine) Args() []*node.Node {
	return append([]*node.Node(nil), c.args...)
}

func buildCombine(inputs map[string]*node.Node, _ map[string]any) (operator.Operator, error) {
	args, err := variadicInputs(CombineDefinition.Key, inputs)
	if err != nil {
		return nil, err
	}
	return NewCombine(args...)
}
