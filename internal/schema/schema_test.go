package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name      string
		features  []FeatureSchema
		indexes   []IndexSchema
		expectErr string
	}{
		{
			name:     "valid",
			features: []FeatureSchema{{"a", dtype.Int64}, {"b", dtype.String}},
			indexes:  []IndexSchema{{"user", dtype.String}},
		},
		{
			name:      "duplicate feature",
			features:  []FeatureSchema{{"a", dtype.Int64}, {"a", dtype.Float64}},
			expectErr: `duplicate feature name "a"`,
		},
		{
			name:      "index collides with feature",
			features:  []FeatureSchema{{"a", dtype.Int64}},
			indexes:   []IndexSchema{{"a", dtype.String}},
			expectErr: `index name "a" already used by a feature`,
		},
		{
			name:      "duplicate index",
			indexes:   []IndexSchema{{"x", dtype.String}, {"x", dtype.Int64}},
			expectErr: `index name "x" already used by a index`,
		},
		{
			name:      "float index",
			indexes:   []IndexSchema{{"x", dtype.Float64}},
			expectErr: "cannot have dtype float64",
		},
		{
			name:      "invalid feature dtype",
			features:  []FeatureSchema{{"a", dtype.Invalid}},
			expectErr: "invalid dtype",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.features, tc.indexes, false)
			if tc.expectErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))
				assert.ErrorContains(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tc.features, s.Features()); diff != "" {
				t.Errorf("features mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.indexes, s.Indexes()); diff != "" {
				t.Errorf("indexes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSchemaIsImmutable(t *testing.T) {
	features := []FeatureSchema{{"a", dtype.Int64}}
	s := MustNew(features, nil, false)

	features[0].Name = "mutated"
	got := s.Features()
	got[0].Name = "mutated too"

	assert.Equal(t, []string{"a"}, s.FeatureNames())
}

func TestCheckCompatibleFeatures(t *testing.T) {
	ab := MustNew([]FeatureSchema{{"a", dtype.Int64}, {"b", dtype.Float64}}, nil, false)
	ba := MustNew([]FeatureSchema{{"b", dtype.Float64}, {"a", dtype.Int64}}, nil, true)
	abOtherType := MustNew([]FeatureSchema{{"a", dtype.Int32}, {"b", dtype.Float64}}, nil, false)
	abc := MustNew([]FeatureSchema{{"a", dtype.Int64}, {"b", dtype.Float64}, {"c", dtype.Boolean}}, nil, false)
	ac := MustNew([]FeatureSchema{{"a", dtype.Int64}, {"c", dtype.Float64}}, nil, false)

	t.Run("same set different order", func(t *testing.T) {
		assert.NoError(t, ab.CheckCompatibleFeatures(ba, false))
		assert.NoError(t, ba.CheckCompatibleFeatures(ab, false))

		err := ab.CheckCompatibleFeatures(ba, true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errdefs.ErrSchemaMismatch))
	})

	t.Run("same order passes ordered check", func(t *testing.T) {
		assert.NoError(t, ab.CheckCompatibleFeatures(ab, true))
	})

	t.Run("mismatches", func(t *testing.T) {
		for _, other := range []*Schema{abOtherType, abc, ac} {
			err := ab.CheckCompatibleFeatures(other, false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errdefs.ErrSchemaMismatch))
		}
	})
}

func TestCheckCompatibleIndex(t *testing.T) {
	a := MustNew(nil, []IndexSchema{{"x", dtype.String}}, false)
	b := MustNew([]FeatureSchema{{"f", dtype.Int64}}, []IndexSchema{{"x", dtype.String}}, true)
	c := MustNew(nil, []IndexSchema{{"x", dtype.Int64}}, false)

	assert.NoError(t, a.CheckCompatibleIndex(b, "inputs"))
	err := a.CheckCompatibleIndex(c, "inputs")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrSchemaMismatch))
	assert.ErrorContains(t, err, "the indexes of inputs don't match")
}

func TestEqual(t *testing.T) {
	a := MustNew([]FeatureSchema{{"a", dtype.Int64}}, []IndexSchema{{"x", dtype.String}}, true)
	b := MustNew([]FeatureSchema{{"a", dtype.Int64}}, []IndexSchema{{"x", dtype.String}}, true)
	c := MustNew([]FeatureSchema{{"a", dtype.Int64}}, []IndexSchema{{"x", dtype.String}}, false)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, 0, a.FeatureIndex("a"))
	assert.Equal(t, -1, a.FeatureIndex("zzz"))
}
