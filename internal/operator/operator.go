// Package operator provides the base every graph operator is built on.
//
// An operator is constructed in two phases. While building, the concrete
// constructor validates its arguments and populates input, output and
// attribute slots through AddInput, NewOutput and AddAttribute. It then calls
// Check, which compares the populated slots against the operator's static
// Definition. Once Check passes the operator and its output nodes are frozen;
// any further mutation is a programming error and panics.
package operator

import (
	"fmt"
	"maps"
	"sort"

	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/sampling"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// Operator is a validated transformation in the symbolic graph.
type Operator interface {
	node.Creator
	Definition() *Definition
	Input(slot string) *node.Node
	Outputs() map[string]*node.Node
	Output(slot string) *node.Node
	Attributes() map[string]any
	Attribute(key string) (any, bool)
}

// Base implements Operator. Concrete operators embed it and call Init first.
type Base struct {
	self       Operator
	def        *Definition
	inputs     map[string]*node.Node
	outputs    map[string]*node.Node
	attributes map[string]any
	checked    bool
}

// Init binds the base to its definition and to the concrete operator that
// embeds it. The concrete operator becomes the creator of every output node.
func (b *Base) Init(self Operator, def *Definition) {
	if def == nil {
		panic("operator: nil definition")
	}
	b.self = self
	b.def = def
	b.inputs = make(map[string]*node.Node)
	b.outputs = make(map[string]*node.Node)
	b.attributes = make(map[string]any)
}

// Key returns the definition key, e.g. "COMBINE".
func (b *Base) Key() string {
	return b.def.Key
}

// Definition returns the operator's static definition.
func (b *Base) Definition() *Definition {
	return b.def
}

// Inputs returns a copy of the populated input slots.
func (b *Base) Inputs() map[string]*node.Node {
	return maps.Clone(b.inputs)
}

// Input returns the node bound to slot, or nil.
func (b *Base) Input(slot string) *node.Node {
	return b.inputs[slot]
}

// Outputs returns a copy of the populated output slots.
func (b *Base) Outputs() map[string]*node.Node {
	return maps.Clone(b.outputs)
}

// Output returns the node produced on slot, or nil.
func (b *Base) Output(slot string) *node.Node {
	return b.outputs[slot]
}

// Attributes returns a copy of the attribute map.
func (b *Base) Attributes() map[string]any {
	return maps.Clone(b.attributes)
}

// Attribute returns the attribute value stored under key.
func (b *Base) Attribute(key string) (any, bool) {
	v, ok := b.attributes[key]
	return v, ok
}

func (b *Base) mustBeBuilding(what string) {
	if b.def == nil {
		panic(fmt.Sprintf("operator: %s before Init", what))
	}
	if b.checked {
		panic(fmt.Sprintf("operator %s: %s after Check", b.def.Key, what))
	}
}

// AddInput binds a node to an input slot.
func (b *Base) AddInput(slot string, n *node.Node) {
	b.mustBeBuilding("AddInput")
	if _, dup := b.inputs[slot]; dup {
		panic(fmt.Sprintf("operator %s: input %q added twice", b.def.Key, slot))
	}
	b.inputs[slot] = n
}

// AddAttribute stores a compile-time constant.
func (b *Base) AddAttribute(key string, value any) {
	b.mustBeBuilding("AddAttribute")
	if _, dup := b.attributes[key]; dup {
		panic(fmt.Sprintf("operator %s: attribute %q added twice", b.def.Key, key))
	}
	b.attributes[key] = value
}

// AddOutput binds an already created node to an output slot. The node must
// have been created with this operator as its creator.
func (b *Base) AddOutput(slot string, n *node.Node) {
	b.mustBeBuilding("AddOutput")
	if _, dup := b.outputs[slot]; dup {
		panic(fmt.Sprintf("operator %s: output %q added twice", b.def.Key, slot))
	}
	b.outputs[slot] = n
}

// NewOutputNewSampling creates an output node with fresh sampling.
func (b *Base) NewOutputNewSampling(slot string, features []schema.FeatureSchema, indexes []schema.IndexSchema, isUnixTimestamp bool) (*node.Node, error) {
	s, err := schema.New(features, indexes, isUnixTimestamp)
	if err != nil {
		return nil, errdefs.WithOperator(err, b.def.Key)
	}
	n := node.NewOutput(s, sampling.New(), b.self, slot)
	b.AddOutput(slot, n)
	return n, nil
}

// NewOutputExistingSampling creates an output node aligned with samplingNode.
// Index and unix flag are inherited from it.
func (b *Base) NewOutputExistingSampling(slot string, features []schema.FeatureSchema, samplingNode *node.Node) (*node.Node, error) {
	src := samplingNode.Schema()
	s, err := schema.New(features, src.Indexes(), src.IsUnixTimestamp())
	if err != nil {
		return nil, errdefs.WithOperator(err, b.def.Key)
	}
	n := node.NewOutput(s, samplingNode.SamplingID(), b.self, slot)
	b.AddOutput(slot, n)
	return n, nil
}

// Check verifies that the populated slots match the definition exactly and
// freezes the operator. A failure means the constructor itself is wrong.
func (b *Base) Check() error {
	if b.def == nil {
		return errdefs.Newf(errdefs.ErrMalformedOperator, "", "", "operator was not initialized")
	}
	key := b.def.Key

	declaredInputs := make(map[string]bool, len(b.def.Inputs))
	for _, in := range b.def.Inputs {
		declaredInputs[in.Key] = true
		n, ok := b.inputs[in.Key]
		if !ok && !in.Optional {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, in.Key, "missing input")
		}
		if ok && n == nil {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, in.Key, "nil input")
		}
	}
	for _, slot := range sortedKeys(b.inputs) {
		if !declaredInputs[slot] {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, slot, "unexpected input")
		}
	}

	declaredOutputs := make(map[string]bool, len(b.def.Outputs))
	for _, out := range b.def.Outputs {
		declaredOutputs[out.Key] = true
		n, ok := b.outputs[out.Key]
		if !ok || n == nil {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, out.Key, "missing output")
		}
		if n.Creator() != node.Creator(b.self) {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, out.Key, "output was created by another operator")
		}
	}
	for _, slot := range sortedKeys(b.outputs) {
		if !declaredOutputs[slot] {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, slot, "unexpected output")
		}
	}

	declaredAttrs := make(map[string]bool, len(b.def.Attributes))
	for _, attr := range b.def.Attributes {
		declaredAttrs[attr.Key] = true
		v, ok := b.attributes[attr.Key]
		if !ok {
			if !attr.Optional {
				return errdefs.Newf(errdefs.ErrMalformedOperator, key, attr.Key, "missing attribute")
			}
			continue
		}
		if !attr.Type.Accepts(v) {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, attr.Key,
				"attribute value %v (%T) is not a %s", v, v, attr.Type)
		}
	}
	for _, k := range sortedKeys(b.attributes) {
		if !declaredAttrs[k] {
			return errdefs.Newf(errdefs.ErrMalformedOperator, key, k, "unexpected attribute")
		}
	}

	b.checked = true
	return nil
}

// Checked reports whether Check has passed.
func (b *Base) Checked() bool {
	return b.checked
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
