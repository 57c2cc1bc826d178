package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndex_Search(t *testing.T) {
	index := NewVectorIndex(0)
	ctx := context.Background()
	require.NoError(t, index.Add(ctx, "x", []float32{1, 0}))
	require.NoError(t, index.Add(ctx, "y", []float32{0, 2}))
	require.NoError(t, index.Add(ctx, "xy", []float32{1, 1}))

	hits, err := index.Search(ctx, []float32{3, 0}, 2)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].PassageID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "xy", hits[1].PassageID)
	assert.Equal(t, 3, index.Len())
	assert.Equal(t, 2, index.Dimensions())
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	index := NewVectorIndex(3)
	ctx := context.Background()

	assert.Error(t, index.Add(ctx, "a", []float32{1, 2}))
	require.NoError(t, index.Add(ctx, "a", []float32{1, 2, 3}))

	_, err := index.Search(ctx, []float32{1}, 1)
	assert.Error(t, err)
}

func TestVectorIndex_EmptyAndDelete(t *testing.T) {
	index := NewVectorIndex(2)
	ctx := context.Background()

	hits, err := index.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, index.Add(ctx, "a", []float32{1, 0}))
	require.NoError(t, index.Delete(ctx, "a"))
	assert.Zero(t, index.Len())
}

func TestUnitVector(t *testing.T) {
	in := []float32{3, 4}
	out := unitVector(in)

	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)
	assert.Equal(t, []float32{3, 4}, in, "input must not be modified")
	assert.Equal(t, []float32{0, 0}, unitVector([]float32{0, 0}))
}
