package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinSuffixesSharedColumns(t *testing.T) {
	l := build(t, []string{"k", "v", "a"}, []any{"x", 1, 10})
	r := build(t, []string{"v", "k", "b"}, []any{2, "x", 20})

	out, err := Join(l, r, []string{"k"}, Inner)
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v_x", "a", "v_y", "b"}, out.Columns())
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 1.0, num(t, out, 0, "v_x"))
	assert.Equal(t, 2.0, num(t, out, 0, "v_y"))
}

func TestJoinKinds(t *testing.T) {
	l := build(t, []string{"k", "a"}, []any{"c", 1}, []any{"a", 2}, []any{nil, 3})
	r := build(t, []string{"k", "b"}, []any{"b", 10}, []any{"a", 20}, []any{nil, 30}, []any{"a", 40})

	inner, err := Join(l, r, []string{"k"}, Inner)
	require.NoError(t, err)
	require.Equal(t, 3, inner.Len())
	assert.Equal(t, 20.0, num(t, inner, 0, "b"))
	assert.Equal(t, 40.0, num(t, inner, 1, "b"))
	assert.Equal(t, 30.0, num(t, inner, 2, "b"), "null keys match each other")

	left, err := Join(l, r, []string{"k"}, Left)
	require.NoError(t, err)
	require.Equal(t, 4, left.Len())
	assert.Equal(t, "c", str(left, 0, "k"))
	assert.True(t, left.Get(0, "b").IsNull())

	right, err := Join(l, r, []string{"k"}, Right)
	require.NoError(t, err)
	require.Equal(t, 4, right.Len())
	assert.Equal(t, "b", str(right, 0, "k"))
	assert.True(t, right.Get(0, "a").IsNull())

	outer, err := Join(l, r, []string{"k"}, Outer)
	require.NoError(t, err)
	require.Equal(t, 5, outer.Len())
	var keys []string
	for i := 0; i < outer.Len(); i++ {
		keys = append(keys, str(outer, i, "k"))
	}
	assert.Equal(t, []string{"a", "a", "b", "c", ""}, keys)

	loud, err := Join(l, r, []string{"k"}, How("LEFT"))
	require.NoError(t, err)
	assert.Equal(t, 4, loud.Len())
	_, err = Join(l, r, []string{"k"}, How("cross"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJoinRequiresKeys(t *testing.T) {
	l := build(t, []string{"k"})
	r := build(t, []string{"j"})
	_, err := Join(l, r, []string{"k"}, Inner)
	assert.Error(t, err)
}
