package btreestore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(it *Iterator) [][2]string {
	var out [][2]string
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, [2]string{string(k), string(v)})
	}
	return out
}

func TestIterYieldsAscendingOrder(t *testing.T) {
	tree := newTestTree(t)
	inserted := []int{5, 1, 9, 3, 7, 0, 8, 2, 6, 4}
	for _, i := range inserted {
		_, _, err := tree.Insert(key(i), value(i))
		require.NoError(t, err)
	}

	got := collect(tree.Iter())
	require.Len(t, got, len(inserted))
	for i, pair := range got {
		assert.Equal(t, string(key(i)), pair[0])
		assert.Equal(t, string(value(i)), pair[1])
	}
}

func TestIterEmptyTree(t *testing.T) {
	tree := newTestTree(t)
	got := collect(tree.Iter())
	assert.Empty(t, got)
}

func TestIterAcrossSplitsAndMerges(t *testing.T) {
	tree := newTestTree(t)
	const n = 250
	for i := 0; i < n; i++ {
		_, _, err := tree.Insert(key(i), value(i))
		require.NoError(t, err)
	}
	for i := 0; i < n; i += 5 {
		_, _, err := tree.Remove(key(i))
		require.NoError(t, err)
	}

	got := collect(tree.Iter())
	var want [][2]string
	for i := 0; i < n; i++ {
		if i%5 == 0 {
			continue
		}
		want = append(want, [2]string{string(key(i)), string(value(i))})
	}
	assert.Equal(t, want, got)
}

// Scenario 5: ranging by prefix must return only matching keys, spanning
// node boundaries, in order.
func TestRangeByPrefix(t *testing.T) {
	tree := newTestTree(t)
	for i := 0; i < 30; i++ {
		_, _, err := tree.Insert([]byte(fmt.Sprintf("fruit-%02d", i)), value(i))
		require.NoError(t, err)
	}
	for i := 0; i < 30; i++ {
		_, _, err := tree.Insert([]byte(fmt.Sprintf("veg-%02d", i)), value(i+1000))
		require.NoError(t, err)
	}

	got := collect(tree.Range([]byte("fruit-"), nil))
	require.Len(t, got, 30)
	for i, pair := range got {
		assert.Equal(t, fmt.Sprintf("fruit-%02d", i), pair[0])
	}

	got = collect(tree.Range([]byte("veg-"), nil))
	require.Len(t, got, 30)
	for i, pair := range got {
		assert.Equal(t, fmt.Sprintf("veg-%02d", i), pair[0])
	}
}

func TestRangeWithOffsetResumes(t *testing.T) {
	tree := newTestTree(t)
	for i := 0; i < 20; i++ {
		_, _, err := tree.Insert([]byte(fmt.Sprintf("p-%02d", i)), value(i))
		require.NoError(t, err)
	}

	first := collect(tree.Range([]byte("p-"), []byte("05")))
	require.NotEmpty(t, first)
	assert.Equal(t, "p-05", first[0][0])
	assert.Len(t, first, 15)

	full := collect(tree.Range([]byte("p-"), nil))
	assert.Len(t, full, 20)
}

func TestRangeNoMatches(t *testing.T) {
	tree := newTestTree(t)
	_, _, err := tree.Insert([]byte("aaa"), value(1))
	require.NoError(t, err)

	got := collect(tree.Range([]byte("zzz"), nil))
	assert.Empty(t, got)
}
