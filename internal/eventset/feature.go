package eventset

import (
	"fmt"
	"math"
	"strconv"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
)

// Element is the set of Go types a feature array can hold.
type Element interface {
	bool | int32 | int64 | float32 | float64 | string
}

// Feature is an immutable typed array of feature values. Operators that do
// not change a feature share the same *Feature between event sets.
type Feature struct {
	dtype  dtype.DType
	values any
}

// NewFeature wraps a typed slice. The slice must not be modified afterwards.
func NewFeature[T Element](values []T) *Feature {
	if values == nil {
		values = []T{}
	}
	return &Feature{dtype: dtypeOf[T](), values: values}
}

// FeatureFromAny wraps a slice held in an interface.
func FeatureFromAny(values any) (*Feature, error) {
	switch v := values.(type) {
	case []bool:
		return NewFeature(v), nil
	case []int32:
		return NewFeature(v), nil
	case []int64:
		return NewFeature(v), nil
	case []int:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return NewFeature(out), nil
	case []float32:
		return NewFeature(v), nil
	case []float64:
		return NewFeature(v), nil
	case []string:
		return NewFeature(v), nil
	}
	return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "unsupported feature values of type %T", values)
}

func dtypeOf[T Element]() dtype.DType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return dtype.Boolean
	case int32:
		return dtype.Int32
	case int64:
		return dtype.Int64
	case float32:
		return dtype.Float32
	case float64:
		return dtype.Float64
	case string:
		return dtype.String
	}
	panic("unreachable")
}

// DType returns the feature's dtype.
func (f *Feature) DType() dtype.DType {
	return f.dtype
}

// Values returns the underlying slice, e.g. []int64.
func (f *Feature) Values() any {
	return f.values
}

// Len returns the number of values.
func (f *Feature) Len() int {
	switch v := f.values.(type) {
	case []bool:
		return len(v)
	case []int32:
		return len(v)
	case []int64:
		return len(v)
	case []float32:
		return len(v)
	case []float64:
		return len(v)
	case []string:
		return len(v)
	}
	return 0
}

// Bools returns the values of a BOOLEAN feature.
func (f *Feature) Bools() []bool { return valuesAs[bool](f) }

// Int32s returns the values of an INT32 feature.
func (f *Feature) Int32s() []int32 { return valuesAs[int32](f) }

// Int64s returns the values of an INT64 feature.
func (f *Feature) Int64s() []int64 { return valuesAs[int64](f) }

// Float32s returns the values of a FLOAT32 feature.
func (f *Feature) Float32s() []float32 { return valuesAs[float32](f) }

// Float64s returns the values of a FLOAT64 feature.
func (f *Feature) Float64s() []float64 { return valuesAs[float64](f) }

// Strings returns the values of a STRING feature.
func (f *Feature) Strings() []string { return valuesAs[string](f) }

func valuesAs[T Element](f *Feature) []T {
	v, ok := f.values.([]T)
	if !ok {
		panic(fmt.Sprintf("eventset: feature has dtype %s, not %s", f.dtype, dtypeOf[T]()))
	}
	return v
}

// Value returns the i-th value boxed in an interface.
func (f *Feature) Value(i int) any {
	switch v := f.values.(type) {
	case []bool:
		return v[i]
	case []int32:
		return v[i]
	case []int64:
		return v[i]
	case []float32:
		return v[i]
	case []float64:
		return v[i]
	case []string:
		return v[i]
	}
	return nil
}

// Take returns a new feature holding the values at the given positions.
func (f *Feature) Take(indices []int) *Feature {
	switch v := f.values.(type) {
	case []bool:
		return NewFeature(take(v, indices))
	case []int32:
		return NewFeature(take(v, indices))
	case []int64:
		return NewFeature(take(v, indices))
	case []float32:
		return NewFeature(take(v, indices))
	case []float64:
		return NewFeature(take(v, indices))
	case []string:
		return NewFeature(take(v, indices))
	}
	panic("unreachable")
}

func take[T Element](values []T, indices []int) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

// ConcatFeatures appends features of the same dtype into a new feature.
func ConcatFeatures(features ...*Feature) (*Feature, error) {
	if len(features) == 0 {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "nothing to concatenate")
	}
	d := features[0].dtype
	for _, f := range features[1:] {
		if f.dtype != d {
			return nil, errdefs.Newf(errdefs.ErrDTypeConstraint, "", "", "cannot concatenate %s and %s", d, f.dtype)
		}
	}
	switch d {
	case dtype.Boolean:
		return NewFeature(concat[bool](features)), nil
	case dtype.Int32:
		return NewFeature(concat[int32](features)), nil
	case dtype.Int64:
		return NewFeature(concat[int64](features)), nil
	case dtype.Float32:
		return NewFeature(concat[float32](features)), nil
	case dtype.Float64:
		return NewFeature(concat[float64](features)), nil
	case dtype.String:
		return NewFeature(concat[string](features)), nil
	}
	panic("unreachable")
}

func concat[T Element](features []*Feature) []T {
	n := 0
	for _, f := range features {
		n += f.Len()
	}
	out := make([]T, 0, n)
	for _, f := range features {
		out = append(out, valuesAs[T](f)...)
	}
	return out
}

// Fill returns a feature of length n where every value is v converted to d.
func Fill(d dtype.DType, v any, n int) (*Feature, error) {
	src, srcType, err := dtype.Normalize(v)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "%v", err)
	}
	one, err := singleton(src, srcType).Cast(d)
	if err != nil {
		return nil, err
	}
	return one.Take(make([]int, n)), nil
}

func singleton(v any, d dtype.DType) *Feature {
	switch d {
	case dtype.Boolean:
		return NewFeature([]bool{v.(bool)})
	case dtype.Int32:
		return NewFeature([]int32{v.(int32)})
	case dtype.Int64:
		return NewFeature([]int64{v.(int64)})
	case dtype.Float32:
		return NewFeature([]float32{v.(float32)})
	case dtype.Float64:
		return NewFeature([]float64{v.(float64)})
	case dtype.String:
		return NewFeature([]string{v.(string)})
	}
	panic("unreachable")
}

// Select picks, per position, a's value where cond is true and b's otherwise.
// a and b must have the same dtype and the same length as cond.
func Select(cond []bool, a, b *Feature) (*Feature, error) {
	if a.dtype != b.dtype {
		return nil, errdefs.Newf(errdefs.ErrDTypeConstraint, "", "", "cannot select between %s and %s", a.dtype, b.dtype)
	}
	if a.Len() != len(cond) || b.Len() != len(cond) {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "condition has %d values but branches have %d and %d", len(cond), a.Len(), b.Len())
	}
	switch a.dtype {
	case dtype.Boolean:
		return NewFeature(pick(cond, a.Bools(), b.Bools())), nil
	case dtype.Int32:
		return NewFeature(pick(cond, a.Int32s(), b.Int32s())), nil
	case dtype.Int64:
		return NewFeature(pick(cond, a.Int64s(), b.Int64s())), nil
	case dtype.Float32:
		return NewFeature(pick(cond, a.Float32s(), b.Float32s())), nil
	case dtype.Float64:
		return NewFeature(pick(cond, a.Float64s(), b.Float64s())), nil
	case dtype.String:
		return NewFeature(pick(cond, a.Strings(), b.Strings())), nil
	}
	panic("unreachable")
}

func pick[T Element](cond []bool, a, b []T) []T {
	out := make([]T, len(cond))
	for i, c := range cond {
		if c {
			out[i] = a[i]
		} else {
			out[i] = b[i]
		}
	}
	return out
}

// CheckRange fails with ErrOverflow if any value lies outside dst's
// representable range. Non-numeric features are never checked.
func (f *Feature) CheckRange(dst dtype.DType) error {
	lo, hi, ok := dst.Range()
	if !ok || !f.dtype.IsNumeric() {
		return nil
	}
	// float64(math.MaxInt64) rounds up to 2^63; integer upper bounds are exclusive at -lo.
	over := func(x float64) bool { return x > hi }
	if dst.IsInteger() {
		over = func(x float64) bool { return x >= -lo }
	}
	for i := 0; i < f.Len(); i++ {
		x := asFloat64(f.Value(i))
		if x < lo || over(x) {
			return errdefs.Newf(errdefs.ErrOverflow, "", "",
				"casting %s to %s: value %v at position %d is outside [%v, %v]", f.dtype, dst, f.Value(i), i, lo, hi)
		}
	}
	return nil
}

func asFloat64(v any) float64 {
	switch x := v.(type) {
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	}
	return math.NaN()
}

// Cast converts the feature to dst. Casting to the feature's own dtype
// returns the receiver itself. Narrowing integer conversions wrap around;
// call CheckRange first to reject them.
func (f *Feature) Cast(dst dtype.DType) (*Feature, error) {
	if dst == f.dtype {
		return f, nil
	}
	n := f.Len()
	switch dst {
	case dtype.Boolean:
		out := make([]bool, n)
		for i := range out {
			b, err := toBool(f.Value(i))
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return NewFeature(out), nil
	case dtype.Int32:
		return castNumeric[int32](f)
	case dtype.Int64:
		return castNumeric[int64](f)
	case dtype.Float32:
		return castNumeric[float32](f)
	case dtype.Float64:
		return castNumeric[float64](f)
	case dtype.String:
		out := make([]string, n)
		for i := range out {
			out[i] = formatValue(f.Value(i))
		}
		return NewFeature(out), nil
	}
	return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "cannot cast to %s", dst)
}

type number interface {
	int32 | int64 | float32 | float64
}

func castNumeric[T number](f *Feature) (*Feature, error) {
	out := make([]T, f.Len())
	switch v := f.values.(type) {
	case []bool:
		for i, x := range v {
			if x {
				out[i] = 1
			}
		}
	case []int32:
		for i, x := range v {
			out[i] = T(x)
		}
	case []int64:
		for i, x := range v {
			out[i] = T(x)
		}
	case []float32:
		for i, x := range v {
			out[i] = T(x)
		}
	case []float64:
		for i, x := range v {
			out[i] = T(x)
		}
	case []string:
		for i, x := range v {
			parsed, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "cannot parse %q as a number", x)
			}
			out[i] = T(parsed)
		}
	}
	return NewFeature(out), nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int32:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case float32:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		return x != "", nil
	}
	return false, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "cannot convert %v to bool", v)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
