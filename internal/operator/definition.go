package operator

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// AttributeType is the type tag of an operator attribute.
type AttributeType int

const (
	AttrScalarInt AttributeType = iota + 1
	AttrScalarFloat
	AttrScalarString
	AttrScalarBool
	AttrList
	AttrAny
)

var attributeTypeNames = map[AttributeType]string{
	AttrScalarInt:    "scalar-int",
	AttrScalarFloat:  "scalar-float",
	AttrScalarString: "scalar-string",
	AttrScalarBool:   "scalar-bool",
	AttrList:         "list",
	AttrAny:          "any",
}

func (t AttributeType) String() string {
	if n, ok := attributeTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("attribute-type(%d)", int(t))
}

// ParseAttributeType is the inverse of String.
func ParseAttributeType(s string) (AttributeType, error) {
	for t, n := range attributeTypeNames {
		if n == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown attribute type %q", s)
}

// CtyType returns the cty type an attribute of this tag is carried as.
// AttrAny maps to cty.DynamicPseudoType.
func (t AttributeType) CtyType() cty.Type {
	switch t {
	case AttrScalarInt, AttrScalarFloat:
		return cty.Number
	case AttrScalarString:
		return cty.String
	case AttrScalarBool:
		return cty.Bool
	case AttrList:
		return cty.List(cty.String)
	}
	return cty.DynamicPseudoType
}

// Accepts reports whether the Go value v is valid for this tag.
func (t AttributeType) Accepts(v any) bool {
	if v == nil {
		return false
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return false
	}
	switch t {
	case AttrScalarInt:
		return ty.Equals(cty.Number) && isGoInteger(v)
	case AttrScalarFloat:
		return ty.Equals(cty.Number)
	case AttrScalarString:
		return ty.Equals(cty.String)
	case AttrScalarBool:
		return ty.Equals(cty.Bool)
	case AttrList:
		return ty.IsListType()
	case AttrAny:
		return true
	}
	return false
}

func isGoInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// InputDef describes one input slot.
type InputDef struct {
	Key      string
	Optional bool
}

// OutputDef describes one output slot. Outputs are always populated.
type OutputDef struct {
	Key string
}

// AttributeDef describes one attribute slot.
type AttributeDef struct {
	Key      string
	Type     AttributeType
	Optional bool
}

// Definition is the static, per-type description of an operator. It is
// the contract a serialized graph is read and written against.
type Definition struct {
	Key        string
	Inputs     []InputDef
	Outputs    []OutputDef
	Attributes []AttributeDef
}

// InputDef returns the descriptor for the named input slot.
func (d *Definition) InputDef(key string) (InputDef, bool) {
	for _, in := range d.Inputs {
		if in.Key == key {
			return in, true
		}
	}
	return InputDef{}, false
}

// AttributeDef returns the descriptor for the named attribute.
func (d *Definition) AttributeDef(key string) (AttributeDef, bool) {
	for _, a := range d.Attributes {
		if a.Key == key {
			return a, true
		}
	}
	return AttributeDef{}, false
}

// HasOutput reports whether the definition declares the output slot.
func (d *Definition) HasOutput(key string) bool {
	for _, o := range d.Outputs {
		if o.Key == key {
			return true
		}
	}
	return false
}
