// Package dtype defines the closed set of feature data types and the range
// rules used for overflow checks.
package dtype

import (
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"
)

// DType is the data type of a feature or index column.
type DType int

const (
	// Invalid is the zero value and never appears in a valid schema.
	Invalid DType = iota
	Boolean
	Int32
	Int64
	Float32
	Float64
	String
)

var names = map[DType]string{
	Boolean: "bool",
	Int32:   "int32",
	Int64:   "int64",
	Float32: "float32",
	Float64: "float64",
	String:  "str",
}

// All lists every valid dtype in declaration order.
func All() []DType {
	return []DType{Boolean, Int32, Int64, Float32, Float64, String}
}

// String returns the canonical name of the dtype.
func (d DType) String() string {
	if n, ok := names[d]; ok {
		return n
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// Parse returns the dtype with the given canonical name.
func Parse(name string) (DType, error) {
	for d, n := range names {
		if n == name {
			return d, nil
		}
	}
	switch name {
	case "bool", "boolean":
		return Boolean, nil
	case "string":
		return String, nil
	}
	return Invalid, fmt.Errorf("unknown dtype %q", name)
}

// IsValid reports whether d is one of the declared dtypes.
func (d DType) IsValid() bool {
	_, ok := names[d]
	return ok
}

// IsInteger reports whether d is a signed integer type.
func (d DType) IsInteger() bool {
	return d == Int32 || d == Int64
}

// IsFloat reports whether d is a floating point type.
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// IsNumeric reports whether d is an integer or floating point type.
func (d DType) IsNumeric() bool {
	return d.IsInteger() || d.IsFloat()
}

// IsIndexable reports whether d may be used for an index column.
func (d DType) IsIndexable() bool {
	return d == Int32 || d == Int64 || d == String || d == Boolean
}

// Range returns the smallest and largest finite values representable by d.
// ok is false for BOOLEAN and STRING, whose range is not defined.
func (d DType) Range() (lo, hi float64, ok bool) {
	switch d {
	case Int32:
		return math.MinInt32, math.MaxInt32, true
	case Int64:
		return math.MinInt64, math.MaxInt64, true
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32, true
	case Float64:
		return -math.MaxFloat64, math.MaxFloat64, true
	}
	return 0, 0, false
}

// CanOverflow reports whether converting values of src into dst may leave
// dst's representable range, i.e. whether dst's maximum is smaller than
// src's. BOOLEAN and STRING on either side never overflow.
func CanOverflow(src, dst DType) bool {
	_, srcMax, okSrc := src.Range()
	_, dstMax, okDst := dst.Range()
	if !okSrc || !okDst {
		return false
	}
	return srcMax > dstMax
}

// CtyType returns the cty type used to carry scalar values of d.
func (d DType) CtyType() cty.Type {
	switch d {
	case Boolean:
		return cty.Bool
	case String:
		return cty.String
	case Int32, Int64, Float32, Float64:
		return cty.Number
	}
	return cty.DynamicPseudoType
}

// InferFromValue returns the dtype of a Go scalar. Plain int values map to
// INT64 and plain float values to FLOAT64.
func InferFromValue(v any) (DType, error) {
	switch v.(type) {
	case bool:
		return Boolean, nil
	case int32:
		return Int32, nil
	case int, int64:
		return Int64, nil
	case float32:
		return Float32, nil
	case float64:
		return Float64, nil
	case string:
		return String, nil
	}
	return Invalid, fmt.Errorf("cannot infer dtype from value %v of type %T", v, v)
}

// Normalize converts a Go scalar into the canonical Go type for its dtype
// (int becomes int64). Values of unsupported types return an error.
func Normalize(v any) (any, DType, error) {
	d, err := InferFromValue(v)
	if err != nil {
		return nil, Invalid, err
	}
	if i, ok := v.(int); ok {
		return int64(i), d, nil
	}
	return v, d, nil
}
