package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopBuild(map[string]*node.Node, map[string]any) (operator.Operator, error) {
	return nil, nil
}

func noopFactory(operator.Operator) (Executor, error) {
	return ExecutorFunc(func(context.Context, map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
		return nil, nil
	}), nil
}

type testModule struct {
	keys []string
}

func (m testModule) Register(r *Registry) {
	for _, k := range m.keys {
		r.Operators.Register(&operator.Definition{Key: k}, noopBuild)
		r.Implementations.Register(k, "test", noopFactory)
	}
}

func TestOperators(t *testing.T) {
	ops := NewOperators()
	ops.Register(&operator.Definition{Key: "B"}, noopBuild)
	ops.Register(&operator.Definition{Key: "A"}, noopBuild)

	assert.Equal(t, []string{"A", "B"}, ops.Keys())

	e, err := ops.Lookup("A")
	require.NoError(t, err)
	assert.Equal(t, "A", e.Definition.Key)

	_, err = ops.Lookup("MISSING")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrUnregisteredOperator))

	_, err = ops.Build("MISSING", nil, nil)
	assert.True(t, errors.Is(err, errdefs.ErrUnregisteredOperator))
}

func TestRegistrationPanics(t *testing.T) {
	t.Run("duplicate operator key", func(t *testing.T) {
		ops := NewOperators()
		ops.Register(&operator.Definition{Key: "A"}, noopBuild)
		assert.Panics(t, func() { ops.Register(&operator.Definition{Key: "A"}, noopBuild) })
	})

	t.Run("operator after freeze", func(t *testing.T) {
		ops := NewOperators()
		ops.Freeze()
		assert.True(t, ops.Frozen())
		assert.Panics(t, func() { ops.Register(&operator.Definition{Key: "A"}, noopBuild) })
	})

	t.Run("nil build function", func(t *testing.T) {
		assert.Panics(t, func() { NewOperators().Register(&operator.Definition{Key: "A"}, nil) })
	})

	t.Run("duplicate implementation", func(t *testing.T) {
		im := NewImplementations()
		im.Register("A", "inmemory", noopFactory)
		im.Register("A", "other", noopFactory)
		assert.Panics(t, func() { im.Register("A", "inmemory", noopFactory) })
	})

	t.Run("implementation after freeze", func(t *testing.T) {
		im := NewImplementations()
		im.Freeze()
		assert.Panics(t, func() { im.Register("A", "inmemory", noopFactory) })
	})
}

func TestImplementations(t *testing.T) {
	im := NewImplementations()
	im.Register("B", "inmemory", noopFactory)
	im.Register("A", "inmemory", noopFactory)
	im.Register("A", "other", noopFactory)

	assert.Equal(t, []string{"A", "B"}, im.Keys("inmemory"))
	assert.Equal(t, []string{"A"}, im.Keys("other"))
	assert.Equal(t, []string{"inmemory", "other"}, im.Backends())

	_, err := im.Lookup("B", "other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrUnregisteredOperator))
	assert.ErrorContains(t, err, `no implementation for backend "other"`)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	r := New().Load(testModule{keys: []string{"A", "B"}})
	r.Freeze()
	require.NoError(t, r.Validate(ctx, "test"))

	err := r.Validate(ctx, "inmemory")
	require.Error(t, err)
	assert.ErrorContains(t, err, "operator 'A' has no implementation for backend 'inmemory'")

	r = New().Load(testModule{keys: []string{"A"}})
	r.Implementations.Register("ORPHAN", "test", noopFactory)
	err = r.Validate(ctx, "test")
	require.Error(t, err)
	assert.ErrorContains(t, err, "implements 'ORPHAN'")
}
