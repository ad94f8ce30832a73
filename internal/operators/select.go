package operators

import (
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

var SelectDefinition = &operator.Definition{
	Key:        "SELECT",
	Inputs:     []operator.InputDef{{Key: "input"}},
	Outputs:    []operator.OutputDef{{Key: "output"}},
	Attributes: []operator.AttributeDef{{Key: "feature_names", Type: operator.AttrList}},
}

var RenameDefinition = &operator.Definition{
	Key:        "RENAME",
	Inputs:     []operator.InputDef{{Key: "input"}},
	Outputs:    []operator.OutputDef{{Key: "output"}},
	Attributes: []operator.AttributeDef{{Key: "features", Type: operator.AttrAny}},
}

var PrefixDefinition = &operator.Definition{
	Key:        "PREFIX",
	Inputs:     []operator.InputDef{{Key: "input"}},
	Outputs:    []operator.OutputDef{{Key: "output"}},
	Attributes: []operator.AttributeDef{{Key: "prefix", Type: operator.AttrScalarString}},
}

// Projection covers the operators that reorder or rename features without
// touching their values. Source maps each output feature to its input
// feature position.
type Projection struct {
	operator.Base
	source []int
}

// Source returns, for each output feature, its position in the input.
func (p *Projection) Source() []int {
	return append([]int(nil), p.source...)
}

func newProjection(def *operator.Definition, input *node.Node, features []schema.FeatureSchema, source []int, attrKey string, attr any) (*Projection, error) {
	op := &Projection{source: source}
	op.Init(op, def)
	op.AddInput("input", input)
	op.AddAttribute(attrKey, attr)
	if _, err := op.NewOutputExistingSampling("output", features, input); err != nil {
		return nil, err
	}
	return op, op.Check()
}

// NewSelect keeps the named features, in the given order.
func NewSelect(input *node.Node, names []string) (*Projection, error) {
	key := SelectDefinition.Key
	if err := notNil(key, "input", input); err != nil {
		return nil, err
	}
	in := input.Schema()
	features := make([]schema.FeatureSchema, len(names))
	source := make([]int, len(names))
	for i, name := range names {
		pos := in.FeatureIndex(name)
		if pos < 0 {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, "feature_names",
				"feature %q is not in the input; available features: %v", name, in.FeatureNames())
		}
		features[i] = in.Feature(pos)
		source[i] = pos
	}
	return newProjection(SelectDefinition, input, features, source, "feature_names", append([]string{}, names...))
}

// NewRename renames features. Names not in mapping are kept.
func NewRename(input *node.Node, mapping map[string]string) (*Projection, error) {
	key := RenameDefinition.Key
	if err := notNil(key, "input", input); err != nil {
		return nil, err
	}
	in := input.Schema()
	for _, old := range sortedKeys(mapping) {
		if in.FeatureIndex(old) < 0 {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, "features",
				"feature %q is not in the input; available features: %v", old, in.FeatureNames())
		}
		if mapping[old] == "" {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, "features", "empty new name for feature %q", old)
		}
	}
	features := in.Features()
	source := make([]int, len(features))
	attr := make(map[string]string, len(mapping))
	for i, f := range features {
		source[i] = i
		if to, ok := mapping[f.Name]; ok {
			features[i].Name = to
			attr[f.Name] = to
		}
	}
	return newProjection(RenameDefinition, input, features, source, "features", attr)
}

// NewPrefix prepends prefix to every feature name.
func NewPrefix(input *node.Node, prefix string) (*Projection, error) {
	if err := notNil(PrefixDefinition.Key, "input", input); err != nil {
		return nil, err
	}
	features := input.Schema().Features()
	source := make([]int, len(features))
	for i := range features {
		features[i].Name = prefix + features[i].Name
		source[i] = i
	}
	return newProjection(PrefixDefinition, input, features, source, "prefix", prefix)
}

func buildSelect(inputs map[string]*node.Node, attrs map[string]any) (operator.Operator, error) {
	input, err := requireInput(SelectDefinition.Key, "input", inputs)
	if err != nil {
		return nil, err
	}
	names, err := stringListAttr(SelectDefinition.Key, "feature_names", attrs)
	if err != nil {
		return nil, err
	}
	return NewSelect(input, names)
}

func buildRename(inputs map[string]*node.Node, attrs map[string]any) (operator.Operator, error) {
	input, err := requireInput(RenameDefinition.Key, "input", inputs)
	if err != nil {
		return nil, err
	}
	mapping, err := stringMapAttr(RenameDefinition.Key, "features", attrs)
	if err != nil {
		return nil, err
	}
	return NewRename(input, mapping)
}

func buildPrefix(inputs map[string]*node.Node, attrs map[string]any) (operator.Operator, error) {
	input, err := requireInput(PrefixDefinition.Key, "input", inputs)
	if err != nil {
		return nil, err
	}
	prefix, err := stringAttr(PrefixDefinition.Key, "prefix", attrs, false)
	if err != nil {
		return nil, err
	}
	return NewPrefix(input, prefix)
}
