package operators

import (
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// MaxGlueArguments is the largest number of GLUE inputs.
const MaxGlueArguments = 100

var GlueDefinition = &operator.Definition{
	Key:     "GLUE",
	Inputs:  variadicInputDefs(MaxGlueArguments),
	Outputs: []operator.OutputDef{{Key: "output"}},
}

// Glue concatenates the features of aligned inputs.
type Glue struct {
	operator.Base
	args []*node.Node
}

func NewGlue(inputs ...*node.Node) (*Glue, error) {
	key := GlueDefinition.Key
	if len(inputs) < 2 || len(inputs) > MaxGlueArguments {
		return nil, errdefs.Newf(errdefs.ErrArgumentCount, key, "",
			"expected between 2 and %d arguments, got %d", MaxGlueArguments, len(inputs))
	}

	op := &Glue{args: inputs}
	op.Init(op, GlueDefinition)

	var features []schema.FeatureSchema
	for i, in := range inputs {
		slot := InputSlot(i)
		if err := notNil(key, slot, in); err != nil {
			return nil, err
		}
		if err := sameSampling(key, slot, inputs[0], in); err != nil {
			return nil, err
		}
		features = append(features, in.Schema().Features()...)
		op.AddInput(slot, in)
	}

	if _, err := op.NewOutputExistingSampling("output", features, inputs[0]); err != nil {
		return nil, err
	}
	return op, op.Check()
}

// Args returns the inputs in argument order.
func (g *Glue) Args() []*node.Node {
	return append([]*node.Node(nil), g.args...)
}

func buildGlue(inputs map[string]*node.Node, _ map[string]any) (operator.Operator, error) {
	args, err := variadicInputs(GlueDefinition.Key, inputs)
	if err != nil {
		return nil, err
	}
	return NewGlue(args...)
}
