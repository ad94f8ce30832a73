package graphio

import (
	"fmt"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Attribute kinds besides the dtype names used for scalars.
const (
	kindList = "list"
	kindMap  = "map"
)

var (
	listType = cty.List(cty.String)
	mapType  = cty.Map(cty.String)
)

// encodeAttribute returns the kind tag and cty form of an attribute value.
func encodeAttribute(v any) (string, cty.Value, error) {
	switch val := v.(type) {
	case []string:
		c, err := gocty.ToCtyValue(val, listType)
		return kindList, c, err
	case map[string]string:
		c, err := gocty.ToCtyValue(val, mapType)
		return kindMap, c, err
	}
	d, err := dtype.InferFromValue(v)
	if err != nil {
		return "", cty.NilVal, err
	}
	c, err := gocty.ToCtyValue(v, d.CtyType())
	return d.String(), c, err
}

// decodeAttribute is the inverse of encodeAttribute.
func decodeAttribute(kind string, val cty.Value) (any, error) {
	if val.IsNull() || !val.IsWhollyKnown() {
		return nil, fmt.Errorf("attribute value must be a known, non-null constant")
	}
	switch kind {
	case kindList:
		return decodeAs[[]string](val, listType)
	case kindMap:
		return decodeAs[map[string]string](val, mapType)
	}

	d, err := dtype.Parse(kind)
	if err != nil {
		return nil, fmt.Errorf("unknown attribute kind %q", kind)
	}
	switch d {
	case dtype.Boolean:
		return decodeAs[bool](val, cty.Bool)
	case dtype.Int32:
		return decodeAs[int32](val, cty.Number)
	case dtype.Int64:
		return decodeAs[int64](val, cty.Number)
	case dtype.Float32:
		return decodeAs[float32](val, cty.Number)
	case dtype.Float64:
		return decodeAs[float64](val, cty.Number)
	case dtype.String:
		return decodeAs[string](val, cty.String)
	}
	return nil, fmt.Errorf("unknown attribute kind %q", kind)
}

func decodeAs[T any](val cty.Value, ty cty.Type) (any, error) {
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return nil, err
	}
	var out T
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return nil, err
	}
	return out, nil
}
