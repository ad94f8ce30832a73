package operators

import (
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/registry"
	"github.com/specialistvlad/tempogrid/internal/sampling"
	"github.com/specialistvlad/tempogrid/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type f = schema.FeatureSchema

func leaf(isUnix bool, features ...f) *node.Node {
	return node.NewLeaf("in", schema.MustNew(features, nil, isUnix), sampling.ID{})
}

func aligned(ref *node.Node, features ...f) *node.Node {
	s := schema.MustNew(features, ref.Schema().Indexes(), ref.Schema().IsUnixTimestamp())
	return node.NewLeaf("aligned", s, ref.SamplingID())
}

func requireKind(t *testing.T, err error, kind error) *errdefs.Error {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	var e *errdefs.Error
	require.True(t, errors.As(err, &e))
	return e
}

func TestRegisteredOperators(t *testing.T) {
	r := registry.New().Load(&Module{})
	expected := []string{
		"BEGIN",
		"CALENDAR_DAY_OF_MONTH",
		"CALENDAR_DAY_OF_WEEK",
		"CALENDAR_DAY_OF_YEAR",
		"CALENDAR_HOUR",
		"CALENDAR_ISO_WEEK",
		"CALENDAR_MINUTE",
		"CALENDAR_MONTH",
		"CALENDAR_SECOND",
		"CALENDAR_YEAR",
		"CAST",
		"COMBINE",
		"END",
		"FILTER",
		"GLUE",
		"PREFIX",
		"RENAME",
		"SELECT",
		"TIMESTAMPS",
		"UNIQUE_TIMESTAMPS",
		"WHERE",
	}
	assert.Equal(t, expected, r.Operators.Keys())

	assert.Panics(t, func() { (&Module{}).Register(r) }, "registering the catalogue twice must panic")
}

func TestCombine(t *testing.T) {
	a := leaf(true, f{"A", dtype.Int64}, f{"B", dtype.Int64})
	b := leaf(true, f{"B", dtype.Int64}, f{"A", dtype.Int64})

	t.Run("feature order follows first input", func(t *testing.T) {
		op, err := NewCombine(a, b)
		require.NoError(t, err)
		out := op.Output("output")
		assert.Equal(t, []string{"A", "B"}, out.Schema().FeatureNames())
		assert.True(t, out.Schema().IsUnixTimestamp())
		assert.False(t, out.SameSampling(a))
		assert.False(t, out.SameSampling(b))
		assert.Same(t, b, op.Input("input_1"))
	})

	t.Run("unix only if all inputs are", func(t *testing.T) {
		notUnix := leaf(false, f{"A", dtype.Int64}, f{"B", dtype.Int64})
		op, err := NewCombine(a, notUnix, b)
		require.NoError(t, err)
		assert.False(t, op.Output("output").Schema().IsUnixTimestamp())

		op, err = NewCombine(notUnix, a)
		require.NoError(t, err)
		assert.False(t, op.Output("output").Schema().IsUnixTimestamp())
	})

	t.Run("argument count", func(t *testing.T) {
		_, err := NewCombine(a)
		requireKind(t, err, errdefs.ErrArgumentCount)

		many := make([]*node.Node, MaxCombineArguments)
		for i := range many {
			many[i] = a
		}
		_, err = NewCombine(many...)
		requireKind(t, err, errdefs.ErrArgumentCount)

		_, err = NewCombine(many[:MaxCombineArguments-1]...)
		assert.NoError(t, err)
	})

	t.Run("feature mismatch", func(t *testing.T) {
		c := leaf(true, f{"A", dtype.Int64}, f{"B", dtype.Float64})
		_, err := NewCombine(a, c)
		e := requireKind(t, err, errdefs.ErrSchemaMismatch)
		assert.Equal(t, "COMBINE", e.Operator)
		assert.Equal(t, "input_1", e.Slot)
	})

	t.Run("index mismatch", func(t *testing.T) {
		indexed := node.NewLeaf("x", schema.MustNew(a.Schema().Features(), []schema.IndexSchema{{Name: "user", DType: dtype.String}}, true), sampling.ID{})
		_, err := NewCombine(a, indexed)
		requireKind(t, err, errdefs.ErrSchemaMismatch)
	})
}

func TestWhere(t *testing.T) {
	cond := leaf(false, f{"flag", dtype.Boolean})

	t.Run("scalar branches", func(t *testing.T) {
		op, err := NewWhere(cond, 1, 2)
		require.NoError(t, err)
		out := op.Output("output")
		assert.Equal(t, []schema.FeatureSchema{{Name: "flag", DType: dtype.Int64}}, out.Schema().Features())
		assert.True(t, out.SameSampling(cond))
		assert.Equal(t, int64(1), op.OnTrue().Value)
		v, ok := op.Attribute("on_false")
		require.True(t, ok)
		assert.Equal(t, int64(2), v)
	})

	t.Run("node and scalar branches", func(t *testing.T) {
		values := aligned(cond, f{"v", dtype.String})
		op, err := NewWhere(cond, values, "none")
		require.NoError(t, err)
		assert.Same(t, values, op.Input("on_true"))
		assert.Equal(t, dtype.String, op.DType())
	})

	t.Run("two boolean features", func(t *testing.T) {
		two := leaf(false, f{"a", dtype.Boolean}, f{"b", dtype.Boolean})
		_, err := NewWhere(two, 1, 2)
		requireKind(t, err, errdefs.ErrDTypeConstraint)
	})

	t.Run("non boolean input", func(t *testing.T) {
		_, err := NewWhere(leaf(false, f{"a", dtype.Int32}), 1, 2)
		requireKind(t, err, errdefs.ErrDTypeConstraint)
	})

	t.Run("branch dtypes differ", func(t *testing.T) {
		_, err := NewWhere(cond, 1, 2.5)
		requireKind(t, err, errdefs.ErrDTypeConstraint)

		_, err = NewWhere(cond, int32(1), int64(2))
		requireKind(t, err, errdefs.ErrDTypeConstraint)
	})

	t.Run("branch with other sampling", func(t *testing.T) {
		other := leaf(false, f{"v", dtype.Int64})
		_, err := NewWhere(cond, other, 1)
		e := requireKind(t, err, errdefs.ErrSamplingMismatch)
		assert.Equal(t, "on_true", e.Slot)
	})

	t.Run("branch with two features", func(t *testing.T) {
		two := aligned(cond, f{"a", dtype.Int64}, f{"b", dtype.Int64})
		_, err := NewWhere(cond, 1, two)
		e := requireKind(t, err, errdefs.ErrDTypeConstraint)
		assert.Equal(t, "on_false", e.Slot)
	})

	t.Run("unsupported scalar", func(t *testing.T) {
		_, err := NewWhere(cond, []int{1}, 2)
		requireKind(t, err, errdefs.ErrInvalidArgument)
	})
}

func TestCast(t *testing.T) {
	in := leaf(false, f{"a", dtype.Int64}, f{"b", dtype.String})

	op, err := NewCast(in, map[string]dtype.DType{"a": dtype.Int32}, true)
	require.NoError(t, err)
	out := op.Output("output")
	assert.Equal(t, []dtype.DType{dtype.Int32, dtype.String}, out.Schema().FeatureDTypes())
	assert.True(t, out.SameSampling(in))
	assert.False(t, op.IsIdentity())
	assert.True(t, op.CheckOverflow())

	attr, _ := op.Attribute("target_dtypes")
	assert.Equal(t, map[string]string{"a": "int32", "b": "str"}, attr)

	same, err := NewCast(in, map[string]dtype.DType{"a": dtype.Int64}, false)
	require.NoError(t, err)
	assert.True(t, same.IsIdentity())

	_, err = NewCast(in, map[string]dtype.DType{"zzz": dtype.Int32}, false)
	requireKind(t, err, errdefs.ErrInvalidArgument)
}

func TestProjections(t *testing.T) {
	in := leaf(false, f{"a", dtype.Int64}, f{"b", dtype.String}, f{"c", dtype.Boolean})

	sel, err := NewSelect(in, []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Output("output").Schema().FeatureNames())
	assert.Equal(t, []int{2, 0}, sel.Source())

	_, err = NewSelect(in, []string{"x"})
	requireKind(t, err, errdefs.ErrInvalidArgument)

	ren, err := NewRename(in, map[string]string{"a": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "b", "c"}, ren.Output("output").Schema().FeatureNames())

	_, err = NewRename(in, map[string]string{"a": "b"})
	requireKind(t, err, errdefs.ErrInvalidArgument)

	pre, err := NewPrefix(in, "p_")
	require.NoError(t, err)
	assert.Equal(t, []string{"p_a", "p_b", "p_c"}, pre.Output("output").Schema().FeatureNames())
	assert.True(t, pre.Output("output").SameSampling(in))
}

func TestGlue(t *testing.T) {
	a := leaf(false, f{"a", dtype.Int64})
	b := aligned(a, f{"b", dtype.Float32})

	op, err := NewGlue(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, op.Output("output").Schema().FeatureNames())
	assert.True(t, op.Output("output").SameSampling(a))

	_, err = NewGlue(a, leaf(false, f{"b", dtype.Int64}))
	requireKind(t, err, errdefs.ErrSamplingMismatch)

	_, err = NewGlue(a, aligned(a, f{"a", dtype.Int64}))
	requireKind(t, err, errdefs.ErrInvalidArgument)

	_, err = NewGlue(a)
	requireKind(t, err, errdefs.ErrArgumentCount)
}

func TestSamplingOperators(t *testing.T) {
	in := node.NewLeaf("in", schema.MustNew(
		[]schema.FeatureSchema{{Name: "v", DType: dtype.Int64}},
		[]schema.IndexSchema{{Name: "user", DType: dtype.String}},
		true,
	), sampling.ID{})

	for _, ctor := range []func(*node.Node) (*Resample, error){NewBegin, NewEnd, NewUniqueTimestamps} {
		op, err := ctor(in)
		require.NoError(t, err)
		out := op.Output("output")
		assert.Empty(t, out.Schema().Features())
		assert.Equal(t, []string{"user"}, out.Schema().IndexNames())
		assert.True(t, out.Schema().IsUnixTimestamp())
		assert.False(t, out.SameSampling(in))
	}

	ts, err := NewTimestamps(in)
	require.NoError(t, err)
	assert.Equal(t, []schema.FeatureSchema{{Name: "timestamps", DType: dtype.Float64}}, ts.Output("output").Schema().Features())
	assert.True(t, ts.Output("output").SameSampling(in))
}

func TestFilter(t *testing.T) {
	in := leaf(false, f{"v", dtype.Int64})
	cond := aligned(in, f{"keep", dtype.Boolean})

	op, err := NewFilter(in, cond)
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, op.Output("output").Schema().FeatureNames())
	assert.False(t, op.Output("output").SameSampling(in))

	_, err = NewFilter(in, aligned(in, f{"keep", dtype.Int32}))
	requireKind(t, err, errdefs.ErrDTypeConstraint)

	_, err = NewFilter(in, leaf(false, f{"keep", dtype.Boolean}))
	requireKind(t, err, errdefs.ErrSamplingMismatch)
}

func TestCalendar(t *testing.T) {
	unix := leaf(true, f{"v", dtype.Int64})

	op, err := NewCalendar(DayOfWeek, unix, "")
	require.NoError(t, err)
	assert.Equal(t, "CALENDAR_DAY_OF_WEEK", op.Key())
	assert.Equal(t, []schema.FeatureSchema{{Name: "calendar_day_of_week", DType: dtype.Int32}}, op.Output("output").Schema().Features())
	_, hasTZ := op.Attribute("tz")
	assert.False(t, hasTZ)

	_, err = NewCalendar(Hour, leaf(false), "")
	requireKind(t, err, errdefs.ErrDTypeConstraint)

	_, err = NewCalendar(Hour, unix, "Not/AZone")
	requireKind(t, err, errdefs.ErrInvalidArgument)

	// 2023-01-01 was a Sunday in ISO week 52 of 2022.
	ts := time.Date(2023, 1, 1, 13, 45, 30, 0, time.UTC)
	expected := map[CalendarUnit]int32{
		Second: 30, Minute: 45, Hour: 13, DayOfMonth: 1, DayOfWeek: 6,
		DayOfYear: 1, ISOWeek: 52, Month: 1, Year: 2023,
	}
	for unit, want := range expected {
		assert.Equal(t, want, unit.Extract(ts), unit)
	}
}

func TestBuildThroughRegistry(t *testing.T) {
	r := registry.New().Load(&Module{})
	in := leaf(false, f{"a", dtype.Int64}, f{"b", dtype.Int64})

	t.Run("cast from attribute maps", func(t *testing.T) {
		op, err := r.Operators.Build("CAST", map[string]*node.Node{"input": in}, map[string]any{
			"target_dtypes":  map[string]any{"a": "float64"},
			"check_overflow": false,
		})
		require.NoError(t, err)
		assert.Equal(t, []dtype.DType{dtype.Float64, dtype.Int64}, op.Output("output").Schema().FeatureDTypes())
	})

	t.Run("select from a generic list", func(t *testing.T) {
		op, err := r.Operators.Build("SELECT", map[string]*node.Node{"input": in}, map[string]any{
			"feature_names": []any{"b"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, op.Output("output").Schema().FeatureNames())
	})

	t.Run("combine counts variadic inputs", func(t *testing.T) {
		_, err := r.Operators.Build("COMBINE", map[string]*node.Node{"input_0": in}, nil)
		requireKind(t, err, errdefs.ErrArgumentCount)

		_, err = r.Operators.Build("COMBINE", map[string]*node.Node{"input_0": in, "input_2": in}, nil)
		requireKind(t, err, errdefs.ErrInvalidArgument)
	})

	t.Run("where from slots", func(t *testing.T) {
		cond := leaf(false, f{"c", dtype.Boolean})
		op, err := r.Operators.Build("WHERE", map[string]*node.Node{"input": cond}, map[string]any{
			"on_true": "yes", "on_false": "no",
		})
		require.NoError(t, err)
		assert.Equal(t, dtype.String, op.(*Where).DType())

		_, err = r.Operators.Build("WHERE", map[string]*node.Node{"input": cond}, map[string]any{"on_true": "yes"})
		requireKind(t, err, errdefs.ErrInvalidArgument)
	})

	t.Run("unknown slots", func(t *testing.T) {
		_, err := r.Operators.Build("PREFIX", map[string]*node.Node{"input": in}, map[string]any{"prefix": "x", "extra": 1})
		e := requireKind(t, err, errdefs.ErrInvalidArgument)
		assert.Equal(t, "extra", e.Slot)

		_, err = r.Operators.Build("BEGIN", map[string]*node.Node{"input": in, "other": in}, nil)
		requireKind(t, err, errdefs.ErrInvalidArgument)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := r.Operators.Build("NOPE", nil, nil)
		requireKind(t, err, errdefs.ErrUnregisteredOperator)
	})
}
