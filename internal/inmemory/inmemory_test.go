package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/operators"
	"github.com/specialistvlad/tempogrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() *registry.Registry {
	r := registry.New().Load(&operators.Module{}, &Module{})
	r.Freeze()
	return r
}

// leafOf returns a graph input node matching e.
func leafOf(e *eventset.EventSet) *node.Node {
	return node.NewLeaf("in", e.Schema(), e.SamplingID())
}

func run(t *testing.T, op operator.Operator, inputs map[string]*eventset.EventSet) (*eventset.EventSet, error) {
	t.Helper()
	factory, err := newRegistry().Implementations.Lookup(op.Key(), Backend)
	require.NoError(t, err)
	exec, err := factory(op)
	require.NoError(t, err)
	out, err := exec.Execute(context.Background(), inputs)
	if err != nil {
		return nil, err
	}
	require.Contains(t, out, "output")
	assert.Equal(t, op.Output("output").SamplingID(), out["output"].SamplingID())
	return out["output"], nil
}

func block(t *testing.T, e *eventset.EventSet, key ...any) *eventset.IndexData {
	t.Helper()
	d, ok := e.Get(eventset.IndexKey(key))
	require.True(t, ok, "missing key %v", key)
	return d
}

func TestEveryOperatorIsImplemented(t *testing.T) {
	require.NoError(t, newRegistry().Validate(context.Background(), Backend))
}

func TestCombine(t *testing.T) {
	a := eventset.MustFromColumns([]float64{0, 1, 3}, []eventset.Column{
		{Name: "A", Values: []int64{0, 10, 30}},
		{Name: "B", Values: []int64{0, -10, -30}},
	}, nil, false)
	b := eventset.MustFromColumns([]float64{1, 4}, []eventset.Column{
		{Name: "B", Values: []int64{-10, -40}},
		{Name: "A", Values: []int64{10, 40}},
	}, nil, false)

	op, err := operators.NewCombine(leafOf(a), leafOf(b))
	require.NoError(t, err)
	out, err := run(t, op, map[string]*eventset.EventSet{"input_0": a, "input_1": b})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, out.Schema().FeatureNames())
	d := block(t, out)
	assert.Equal(t, []float64{0, 1, 1, 3, 4}, d.Timestamps())
	assert.Equal(t, []int64{0, 10, 10, 30, 40}, d.Feature(0).Int64s())
	assert.Equal(t, []int64{0, -10, -10, -30, -40}, d.Feature(1).Int64s())
}

func TestCombineIndexKeys(t *testing.T) {
	a := eventset.MustFromColumns([]float64{2, 1}, []eventset.Column{
		{Name: "user", Values: []string{"x", "y"}},
		{Name: "v", Values: []float32{1, 2}},
	}, []string{"user"}, true)
	b := eventset.MustFromColumns([]float64{2, 5}, []eventset.Column{
		{Name: "user", Values: []string{"z", "x"}},
		{Name: "v", Values: []float32{3, 4}},
	}, []string{"user"}, true)

	op, err := operators.NewCombine(leafOf(a), leafOf(b))
	require.NoError(t, err)
	out, err := run(t, op, map[string]*eventset.EventSet{"input_0": a, "input_1": b})
	require.NoError(t, err)

	assert.Equal(t, []eventset.IndexKey{{"x"}, {"y"}, {"z"}}, out.Keys())
	x := block(t, out, "x")
	assert.Equal(t, []float64{2, 5}, x.Timestamps())
	assert.Equal(t, []float32{1, 4}, x.Feature(0).Float32s())
	assert.Equal(t, []float32{3}, block(t, out, "z").Feature(0).Float32s())
}

func TestCast(t *testing.T) {
	in := eventset.MustFromColumns([]float64{0, 1}, []eventset.Column{
		{Name: "big", Values: []int64{0, 1 << 40}},
		{Name: "label", Values: []string{"a", "b"}},
	}, nil, false)
	n := leafOf(in)

	t.Run("identity returns input", func(t *testing.T) {
		op, err := operators.NewCast(n, map[string]dtype.DType{"big": dtype.Int64, "label": dtype.String}, true)
		require.NoError(t, err)
		out, err := run(t, op, map[string]*eventset.EventSet{"input": in})
		require.NoError(t, err)
		assert.Same(t, in, out)
	})

	t.Run("unchanged features are reused", func(t *testing.T) {
		op, err := operators.NewCast(n, map[string]dtype.DType{"big": dtype.Float64}, true)
		require.NoError(t, err)
		out, err := run(t, op, map[string]*eventset.EventSet{"input": in})
		require.NoError(t, err)
		assert.NotSame(t, in, out)
		assert.Same(t, block(t, in).Feature(1), block(t, out).Feature(1))
		assert.Equal(t, []float64{0, 1 << 40}, block(t, out).Feature(0).Float64s())
	})

	t.Run("overflow checked", func(t *testing.T) {
		op, err := operators.NewCast(n, map[string]dtype.DType{"big": dtype.Int32}, true)
		require.NoError(t, err)
		_, err = run(t, op, map[string]*eventset.EventSet{"input": in})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errdefs.ErrOverflow))
		var e *errdefs.Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, "CAST", e.Operator)
		assert.Equal(t, "big", e.Slot)
	})

	t.Run("overflow unchecked truncates", func(t *testing.T) {
		op, err := operators.NewCast(n, map[string]dtype.DType{"big": dtype.Int32}, false)
		require.NoError(t, err)
		out, err := run(t, op, map[string]*eventset.EventSet{"input": in})
		require.NoError(t, err)
		big := int64(1) << 40
		assert.Equal(t, []int32{0, int32(big)}, block(t, out).Feature(0).Int32s())
	})

	t.Run("string to number", func(t *testing.T) {
		nums := eventset.MustFromColumns([]float64{0}, []eventset.Column{{Name: "s", Values: []string{"12"}}}, nil, false)
		op, err := operators.NewCast(leafOf(nums), map[string]dtype.DType{"s": dtype.Int32}, true)
		require.NoError(t, err)
		out, err := run(t, op, map[string]*eventset.EventSet{"input": nums})
		require.NoError(t, err)
		assert.Equal(t, []int32{12}, block(t, out).Feature(0).Int32s())
	})
}

func TestWhere(t *testing.T) {
	cond := eventset.MustFromColumns([]float64{0, 1, 2}, []eventset.Column{
		{Name: "c", Values: []bool{true, false, true}},
	}, nil, false)
	c := leafOf(cond)

	t.Run("scalars", func(t *testing.T) {
		op, err := operators.NewWhere(c, "yes", "no")
		require.NoError(t, err)
		out, err := run(t, op, map[string]*eventset.EventSet{"input": cond})
		require.NoError(t, err)
		d := block(t, out)
		assert.Equal(t, []string{"yes", "no", "yes"}, d.Feature(0).Strings())
		assert.Equal(t, []float64{0, 1, 2}, d.Timestamps())
	})

	t.Run("node branch", func(t *testing.T) {
		values := eventset.MustFromColumns([]float64{0, 1, 2}, []eventset.Column{
			{Name: "v", Values: []float64{1, 2, 3}},
		}, nil, false).WithSampling(cond.SamplingID())
		v := node.NewLeaf("v", values.Schema(), values.SamplingID())

		op, err := operators.NewWhere(c, 0.0, v)
		require.NoError(t, err)
		out, err := run(t, op, map[string]*eventset.EventSet{"input": cond, "on_false": values})
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 2, 0}, block(t, out).Feature(0).Float64s())
		assert.Equal(t, []string{"c"}, out.Schema().FeatureNames())
	})
}

func TestProjectionsShareArrays(t *testing.T) {
	in := eventset.MustFromColumns([]float64{0, 1}, []eventset.Column{
		{Name: "a", Values: []int64{1, 2}},
		{Name: "b", Values: []bool{true, false}},
	}, nil, false)
	n := leafOf(in)

	sel, err := operators.NewSelect(n, []string{"b"})
	require.NoError(t, err)
	out, err := run(t, sel, map[string]*eventset.EventSet{"input": in})
	require.NoError(t, err)
	assert.Same(t, block(t, in).Feature(1), block(t, out).Feature(0))

	pre, err := operators.NewPrefix(n, "x_")
	require.NoError(t, err)
	out, err = run(t, pre, map[string]*eventset.EventSet{"input": in})
	require.NoError(t, err)
	assert.Equal(t, []string{"x_a", "x_b"}, out.Schema().FeatureNames())
	assert.Same(t, block(t, in).Feature(0), block(t, out).Feature(0))
}

func TestGlue(t *testing.T) {
	a := eventset.MustFromColumns([]float64{0, 1}, []eventset.Column{{Name: "a", Values: []int64{1, 2}}}, nil, false)
	b := eventset.MustFromColumns([]float64{0, 1}, []eventset.Column{{Name: "b", Values: []string{"x", "y"}}}, nil, false).
		WithSampling(a.SamplingID())

	op, err := operators.NewGlue(leafOf(a), leafOf(b))
	require.NoError(t, err)
	out, err := run(t, op, map[string]*eventset.EventSet{"input_0": a, "input_1": b})
	require.NoError(t, err)
	d := block(t, out)
	assert.Equal(t, []int64{1, 2}, d.Feature(0).Int64s())
	assert.Equal(t, []string{"x", "y"}, d.Feature(1).Strings())
}

func TestResample(t *testing.T) {
	in := eventset.MustFromColumns([]float64{5, 6, 6, 7, -1}, []eventset.Column{
		{Name: "idx", Values: []int64{1, 1, 1, 1, 2}},
		{Name: "f", Values: []int64{50, 60, 61, 70, -10}},
	}, []string{"idx"}, false)
	n := leafOf(in)

	testCases := []struct {
		name     string
		ctor     func(*node.Node) (*operators.Resample, error)
		expected map[int64][]float64
	}{
		{"begin", operators.NewBegin, map[int64][]float64{1: {5}, 2: {-1}}},
		{"end", operators.NewEnd, map[int64][]float64{1: {7}, 2: {-1}}},
		{"unique", operators.NewUniqueTimestamps, map[int64][]float64{1: {5, 6, 7}, 2: {-1}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			op, err := tc.ctor(n)
			require.NoError(t, err)
			out, err := run(t, op, map[string]*eventset.EventSet{"input": in})
			require.NoError(t, err)
			assert.Equal(t, 0, out.Schema().NumFeatures())
			for idx, ts := range tc.expected {
				assert.Equal(t, ts, block(t, out, idx).Timestamps())
			}
		})
	}

	op, err := operators.NewTimestamps(n)
	require.NoError(t, err)
	out, err := run(t, op, map[string]*eventset.EventSet{"input": in})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 6, 7}, block(t, out, int64(1)).Feature(0).Float64s())
}

func TestFilter(t *testing.T) {
	in := eventset.MustFromColumns([]float64{0, 1, 2}, []eventset.Column{{Name: "v", Values: []int32{1, 2, 3}}}, nil, false)
	cond := eventset.MustFromColumns([]float64{0, 1, 2}, []eventset.Column{{Name: "k", Values: []bool{false, true, true}}}, nil, false).
		WithSampling(in.SamplingID())

	op, err := operators.NewFilter(leafOf(in), leafOf(cond))
	require.NoError(t, err)
	out, err := run(t, op, map[string]*eventset.EventSet{"input": in, "condition": cond})
	require.NoError(t, err)
	d := block(t, out)
	assert.Equal(t, []float64{1, 2}, d.Timestamps())
	assert.Equal(t, []int32{2, 3}, d.Feature(0).Int32s())
}

func TestCalendar(t *testing.T) {
	ts := float64(time.Date(2023, 1, 1, 23, 30, 0, 0, time.UTC).Unix())
	in := eventset.MustFromColumns([]float64{ts}, []eventset.Column{{Name: "v", Values: []bool{true}}}, nil, true)

	op, err := operators.NewCalendar(operators.Hour, leafOf(in), "")
	require.NoError(t, err)
	out, err := run(t, op, map[string]*eventset.EventSet{"sampling": in})
	require.NoError(t, err)
	assert.Equal(t, []int32{23}, block(t, out).Feature(0).Int32s())

	op, err = operators.NewCalendar(operators.DayOfMonth, leafOf(in), "Asia/Tokyo")
	require.NoError(t, err)
	out, err = run(t, op, map[string]*eventset.EventSet{"sampling": in})
	require.NoError(t, err)
	assert.Equal(t, []int32{2}, block(t, out).Feature(0).Int32s())
}

func TestUnixTime(t *testing.T) {
	assert.Equal(t, time.Unix(-2, 500_000_000).UTC(), unixTime(-1.5).UTC())
	assert.Equal(t, time.Unix(3, 250_000_000).UTC(), unixTime(3.25).UTC())
}

func TestFactoryRejectsForeignOperator(t *testing.T) {
	in := eventset.MustFromColumns([]float64{0}, []eventset.Column{{Name: "v", Values: []int64{1}}}, nil, false)
	op, err := operators.NewPrefix(leafOf(in), "p")
	require.NoError(t, err)

	factory, err := newRegistry().Implementations.Lookup("CAST", Backend)
	require.NoError(t, err)
	_, err = factory(op)
	assert.True(t, errors.Is(err, errdefs.ErrMalformedOperator))
}
