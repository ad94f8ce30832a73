package graphio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operators"
	"github.com/specialistvlad/tempogrid/internal/registry"
	"github.com/specialistvlad/tempogrid/internal/sampling"
	"github.com/specialistvlad/tempogrid/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOperators() *registry.Operators {
	r := registry.New().Load(&operators.Module{})
	r.Freeze()
	return r.Operators
}

// sampleGraph builds a graph that touches every attribute kind.
func sampleGraph(t *testing.T) map[string]*node.Node {
	t.Helper()
	id := sampling.New()
	prices := node.NewLeaf("prices", schema.MustNew(
		[]schema.FeatureSchema{{Name: "price", DType: dtype.Float64}, {Name: "qty", DType: dtype.Int64}},
		[]schema.IndexSchema{{Name: "user", DType: dtype.String}},
		true,
	), id)
	flags := node.NewLeaf("flags", schema.MustNew(
		[]schema.FeatureSchema{{Name: "ok", DType: dtype.Boolean}},
		[]schema.IndexSchema{{Name: "user", DType: dtype.String}},
		true,
	), id)

	cast, err := operators.NewCast(prices, map[string]dtype.DType{"qty": dtype.Float64}, true)
	require.NoError(t, err)
	sel, err := operators.NewSelect(cast.Output("output"), []string{"qty"})
	require.NoError(t, err)
	where, err := operators.NewWhere(flags, 1.5, -1.5)
	require.NoError(t, err)
	glue, err := operators.NewGlue(sel.Output("output"), where.Output("output"))
	require.NoError(t, err)
	hour, err := operators.NewCalendar(operators.Hour, prices, "Europe/Paris")
	require.NoError(t, err)
	combined, err := operators.NewCombine(glue.Output("output"), glue.Output("output"))
	require.NoError(t, err)

	return map[string]*node.Node{
		"features": combined.Output("output"),
		"hour":     hour.Output("output"),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	outputs := sampleGraph(t)

	var first bytes.Buffer
	require.NoError(t, Save(ctx, &first, outputs))

	g, err := Load(ctx, first.Bytes(), "graph.hcl", newOperators())
	require.NoError(t, err)

	assert.Equal(t, []string{"flags", "prices"}, g.InputNames())
	assert.Equal(t, []string{"features", "hour"}, g.OutputNames())
	assert.True(t, g.Inputs["flags"].SameSampling(g.Inputs["prices"]))
	for name, n := range outputs {
		assert.True(t, n.Schema().Equal(g.Outputs[name].Schema()), name)
	}
	assert.Equal(t, []string{"qty", "ok"}, g.Outputs["features"].Schema().FeatureNames())

	var second bytes.Buffer
	require.NoError(t, Save(ctx, &second, g.Outputs))
	assert.Equal(t, first.String(), second.String())
}

const handWritten = `
output "result" {
  node = operator.b.output
}

operator "b" {
  key = "PREFIX"
  inputs {
    input = operator.a.output
  }
  attribute "prefix" {
    kind  = "str"
    value = "x_"
  }
}

operator "a" {
  key = "SELECT"
  inputs {
    input = input.prices
  }
  attribute "feature_names" {
    kind  = "list"
    value = ["qty"]
  }
}

input "prices" {
  feature "price" { dtype = "float64" }
  feature "qty" { dtype = "int64" }
}
`

func TestLoadResolvesOperatorOrder(t *testing.T) {
	g, err := Load(context.Background(), []byte(handWritten), "graph.hcl", newOperators())
	require.NoError(t, err)

	out := g.Outputs["result"]
	require.NotNil(t, out)
	assert.Equal(t, []string{"x_qty"}, out.Schema().FeatureNames())
	assert.Equal(t, "PREFIX", out.Creator().Key())
	assert.True(t, out.SameSampling(g.Inputs["prices"]))
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name     string
		src      string
		kind     error
		contains string
	}{
		{
			name: "unknown operator key",
			src: `
input "a" {
  feature "x" { dtype = "int64" }
}
operator "o" {
  key = "NOPE"
  inputs {
    input = input.a
  }
}`,
			kind: errdefs.ErrUnregisteredOperator,
		},
		{
			name: "cycle",
			src: `
operator "a" {
  key = "PREFIX"
  inputs {
    input = operator.b.output
  }
  attribute "prefix" {
    kind  = "str"
    value = "a"
  }
}
operator "b" {
  key = "PREFIX"
  inputs {
    input = operator.a.output
  }
  attribute "prefix" {
    kind  = "str"
    value = "b"
  }
}`,
			kind: errdefs.ErrCyclicGraph,
		},
		{
			name: "construction check",
			src: `
input "a" {
  feature "x" { dtype = "int64" }
}
operator "o" {
  key = "WHERE"
  inputs {
    input = input.a
  }
  attribute "on_true" {
    kind  = "int64"
    value = 1
  }
  attribute "on_false" {
    kind  = "int64"
    value = 0
  }
}`,
			kind: errdefs.ErrDTypeConstraint,
		},
		{
			name: "bad reference",
			src: `
operator "o" {
  key = "PREFIX"
  inputs {
    input = something.else
  }
}`,
			contains: "Invalid node reference",
		},
		{
			name: "undeclared input",
			src: `
operator "o" {
  key = "PREFIX"
  inputs {
    input = input.missing
  }
  attribute "prefix" {
    kind  = "str"
    value = "p"
  }
}`,
			contains: `undeclared input "missing"`,
		},
		{
			name: "bad attribute kind",
			src: `
input "a" {
  feature "x" { dtype = "int64" }
}
operator "o" {
  key = "PREFIX"
  inputs {
    input = input.a
  }
  attribute "prefix" {
    kind  = "complex"
    value = "p"
  }
}`,
			contains: `unknown attribute kind "complex"`,
		},
		{
			name: "bad dtype",
			src: `
input "a" {
  feature "x" { dtype = "int8" }
}`,
			kind: errdefs.ErrInvalidArgument,
		},
		{
			name:     "syntax error",
			src:      `input "a" {`,
			contains: "failed to parse HCL file",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(context.Background(), []byte(tc.src), "graph.hcl", newOperators())
			require.Error(t, err)
			if tc.kind != nil {
				assert.True(t, errors.Is(err, tc.kind), err.Error())
			}
			if tc.contains != "" {
				assert.Contains(t, err.Error(), tc.contains)
			}
		})
	}
}

func TestLoadPathMergesDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inputs.hcl"), []byte(`
input "prices" {
  feature "price" { dtype = "float64" }
  feature "qty" { dtype = "int64" }
}
`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ops"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ops", "graph.hcl"), []byte(`
operator "a" {
  key = "TIMESTAMPS"
  inputs {
    input = input.prices
  }
}
output "ts" {
  node = operator.a.output
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	g, err := LoadPath(context.Background(), dir, newOperators())
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamps"}, g.Outputs["ts"].Schema().FeatureNames())
}

func TestResolveGraphPath(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "graph.txt")
	require.NoError(t, os.WriteFile(txt, []byte(""), 0o644))

	_, err := ResolveGraphPath(context.Background(), txt)
	assert.ErrorContains(t, err, "not an .hcl file")

	_, err = ResolveGraphPath(context.Background(), filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "not found")

	files, err := ResolveGraphPath(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestAttributeCodec(t *testing.T) {
	testCases := []struct {
		name  string
		value any
		kind  string
	}{
		{"string", "p_", "str"},
		{"bool", true, "bool"},
		{"int32", int32(7), "int32"},
		{"int64", int64(-3), "int64"},
		{"float32", float32(1.5), "float32"},
		{"float64", 0.1, "float64"},
		{"list", []string{"a", "b"}, "list"},
		{"map", map[string]string{"a": "int32"}, "map"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kind, val, err := encodeAttribute(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, kind)
			got, err := decodeAttribute(kind, val)
			require.NoError(t, err)
			assert.Equal(t, tc.value, got)
		})
	}

	_, _, err := encodeAttribute(struct{}{})
	assert.Error(t, err)
}
