package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	a := New()
	b := New()

	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
	assert.True(t, ID{}.IsZero())

	parsed, err := Parse(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
	assert.True(t, a == parsed)

	_, err = Parse("not-a-uuid")
	assert.ErrorContains(t, err, "invalid sampling id")
}
