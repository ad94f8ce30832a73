package operators

import (
	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

var CastDefinition = &operator.Definition{
	Key:     "CAST",
	Inputs:  []operator.InputDef{{Key: "input"}},
	Outputs: []operator.OutputDef{{Key: "output"}},
	Attributes: []operator.AttributeDef{
		{Key: "target_dtypes", Type: operator.AttrAny},
		{Key: "check_overflow", Type: operator.AttrScalarBool},
	},
}

// Cast retargets the dtype of features.
type Cast struct {
	operator.Base
	targets       []dtype.DType
	checkOverflow bool
}

// NewCast builds a CAST operator. targets maps feature names to their new
// dtype; features it does not name keep their dtype.
func NewCast(input *node.Node, targets map[string]dtype.DType, checkOverflow bool) (*Cast, error) {
	key := CastDefinition.Key
	if err := notNil(key, "input", input); err != nil {
		return nil, err
	}
	in := input.Schema()
	for _, name := range sortedKeys(targets) {
		if in.FeatureIndex(name) < 0 {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, "target_dtypes",
				"feature %q is not in the input; available features: %v", name, in.FeatureNames())
		}
		if !targets[name].IsValid() {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, "target_dtypes", "invalid dtype for feature %q", name)
		}
	}

	op := &Cast{checkOverflow: checkOverflow}
	op.Init(op, CastDefinition)
	op.AddInput("input", input)

	features := in.Features()
	attr := make(map[string]string, len(features))
	op.targets = make([]dtype.DType, len(features))
	for i, f := range features {
		if d, ok := targets[f.Name]; ok {
			features[i] = schema.FeatureSchema{Name: f.Name, DType: d}
		}
		op.targets[i] = features[i].DType
		attr[f.Name] = features[i].DType.String()
	}
	op.AddAttribute("target_dtypes", attr)
	op.AddAttribute("check_overflow", checkOverflow)

	if _, err := op.NewOutputExistingSampling("output", features, input); err != nil {
		return nil, err
	}
	return op, op.Check()
}

// TargetDTypes returns the output dtype of each feature in schema order.
func (c *Cast) TargetDTypes() []dtype.DType {
	return append([]dtype.DType(nil), c.targets...)
}

// CheckOverflow reports whether narrowing casts must be range checked.
func (c *Cast) CheckOverflow() bool {
	return c.checkOverflow
}

// IsIdentity reports whether no feature changes dtype.
func (c *Cast) IsIdentity() bool {
	in := c.Input("input").Schema()
	for i, d := range c.targets {
		if in.Feature(i).DType != d {
			return false
		}
	}
	return true
}

func buildCast(inputs map[string]*node.Node, attrs map[string]any) (operator.Operator, error) {
	key := CastDefinition.Key
	input, err := requireInput(key, "input", inputs)
	if err != nil {
		return nil, err
	}
	names, err := stringMapAttr(key, "target_dtypes", attrs)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]dtype.DType, len(names))
	for feature, name := range names {
		d, err := dtype.Parse(name)
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, "target_dtypes", "feature %q: %v", feature, err)
		}
		targets[feature] = d
	}
	check, err := boolAttr(key, "check_overflow", attrs)
	if err != nil {
		return nil, err
	}
	return NewCast(input, targets, check)
}
