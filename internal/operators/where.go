package operators

import (
	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// WhereDefinition lets each branch be either an input node or a scalar attribute.
var WhereDefinition = &operator.Definition{
	Key: "WHERE",
	Inputs: []operator.InputDef{
		{Key: "input"},
		{Key: "on_true", Optional: true},
		{Key: "on_false", Optional: true},
	},
	Outputs: []operator.OutputDef{{Key: "output"}},
	Attributes: []operator.AttributeDef{
		{Key: "on_true", Type: operator.AttrAny, Optional: true},
		{Key: "on_false", Type: operator.AttrAny, Optional: true},
	},
}

// Branch is one side of a WHERE: a single-feature node or a scalar.
type Branch struct {
	Node  *node.Node
	Value any
}

// Where picks, per event, the on_true or on_false value depending on the
// input's boolean feature.
type Where struct {
	operator.Base
	onTrue  Branch
	onFalse Branch
	dtype   dtype.DType
}

// NewWhere builds a WHERE operator. onTrue and onFalse are each a
// *node.Node aligned with input or a Go scalar. The input must have a
// single BOOLEAN feature and both branches must resolve to the same dtype.
func NewWhere(input *node.Node, onTrue, onFalse any) (*Where, error) {
	key := WhereDefinition.Key
	if err := notNil(key, "input", input); err != nil {
		return nil, err
	}
	dtypes := input.Schema().FeatureDTypes()
	if len(dtypes) != 1 || dtypes[0] != dtype.Boolean {
		return nil, errdefs.Newf(errdefs.ErrDTypeConstraint, key, "input",
			"input should have only 1 boolean feature but got %d features %s", len(dtypes), joinDTypes(dtypes))
	}

	op := &Where{}
	op.Init(op, WhereDefinition)
	op.AddInput("input", input)

	var err error
	var trueType, falseType dtype.DType
	if op.onTrue, trueType, err = op.addBranch("on_true", onTrue, input); err != nil {
		return nil, err
	}
	if op.onFalse, falseType, err = op.addBranch("on_false", onFalse, input); err != nil {
		return nil, err
	}
	if trueType != falseType {
		return nil, errdefs.Newf(errdefs.ErrDTypeConstraint, key, "",
			"on_true (dtype=%s) and on_false (dtype=%s) should have the same dtype; cast one of them", trueType, falseType)
	}
	op.dtype = trueType

	name := input.Schema().Feature(0).Name
	if _, err := op.NewOutputExistingSampling("output", []schema.FeatureSchema{{Name: name, DType: trueType}}, input); err != nil {
		return nil, err
	}
	return op, op.Check()
}

func (w *Where) addBranch(slot string, arg any, input *node.Node) (Branch, dtype.DType, error) {
	key := WhereDefinition.Key
	if n, ok := arg.(*node.Node); ok {
		if err := notNil(key, slot, n); err != nil {
			return Branch{}, dtype.Invalid, err
		}
		if err := sameSampling(key, slot, input, n); err != nil {
			return Branch{}, dtype.Invalid, err
		}
		d, err := singleFeature(key, slot, n)
		if err != nil {
			return Branch{}, dtype.Invalid, err
		}
		w.AddInput(slot, n)
		return Branch{Node: n}, d, nil
	}

	v, d, err := dtype.Normalize(arg)
	if err != nil {
		return Branch{}, dtype.Invalid, errdefs.Newf(errdefs.ErrInvalidArgument, key, slot, "%v", err)
	}
	w.AddAttribute(slot, v)
	return Branch{Value: v}, d, nil
}

// OnTrue returns the branch used where the condition holds.
func (w *Where) OnTrue() Branch { return w.onTrue }

// OnFalse returns the branch used where the condition does not hold.
func (w *Where) OnFalse() Branch { return w.onFalse }

// DType returns the dtype of the output feature.
func (w *Where) DType() dtype.DType { return w.dtype }

func buildWhere(inputs map[string]*node.Node, attrs map[string]any) (operator.Operator, error) {
	key := WhereDefinition.Key
	input, err := requireInput(key, "input", inputs)
	if err != nil {
		return nil, err
	}
	branch := func(slot string) (any, error) {
		n, isNode := inputs[slot]
		v, isAttr := attrs[slot]
		switch {
		case isNode && isAttr:
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, slot, "given both as an input and as an attribute")
		case isNode:
			return n, nil
		case isAttr:
			return v, nil
		}
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, slot, "missing branch")
	}
	onTrue, err := branch("on_true")
	if err != nil {
		return nil, err
	}
	onFalse, err := branch("on_false")
	if err != nil {
		return nil, err
	}
	return NewWhere(input, onTrue, onFalse)
}
