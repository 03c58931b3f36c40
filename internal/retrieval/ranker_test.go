package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/platepick/internal/corpus/corpustest"
	"github.com/kailas-cloud/platepick/internal/domain"
)

func TestFlatIndex_Rank(t *testing.T) {
	c := corpustest.New(t, corpustest.Koramangala()...)
	idx := NewFlatIndex(c)

	got, err := idx.Rank(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []int{0, 2, 1}, neighborIDs(got))
	assert.InDelta(t, 0, got[0].Distance, 1e-6)
	assert.InDelta(t, 0.09+0.49, got[1].Distance, 1e-6)
	assert.InDelta(t, 2, got[2].Distance, 1e-6)
}

func TestFlatIndex_ClampsK(t *testing.T) {
	c := corpustest.New(t, corpustest.Koramangala()...)
	idx := NewFlatIndex(c)

	got, err := idx.Rank(context.Background(), []float32{1, 0}, 5000)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = idx.Rank(context.Background(), []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFlatIndex_TiesOrderedByID(t *testing.T) {
	entries := []corpustest.Entry{
		{Name: "One", Location: "HSR", Rating: 4, Price: 100, Vector: []float32{0, 1}},
		{Name: "Two", Location: "HSR", Rating: 4, Price: 100, Vector: []float32{1, 0}},
		{Name: "Three", Location: "HSR", Rating: 4, Price: 100, Vector: []float32{0, 1}},
		{Name: "Four", Location: "HSR", Rating: 4, Price: 100, Vector: []float32{1, 0}},
	}
	idx := NewFlatIndex(corpustest.New(t, entries...))

	got, err := idx.Rank(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 0}, neighborIDs(got))
}

func TestFlatIndex_Deterministic(t *testing.T) {
	c := randomCorpus(t, 500, 8, 7)
	idx := NewFlatIndex(c)
	query := randomVector(8, 99)

	first, err := idx.Rank(context.Background(), query, 50)
	require.NoError(t, err)
	for range 5 {
		again, err := idx.Rank(context.Background(), query, 50)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	for i := 1; i < len(first); i++ {
		require.LessOrEqual(t, first[i-1].Distance, first[i].Distance)
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx := NewFlatIndex(corpustest.New(t, corpustest.Koramangala()...))

	_, err := idx.Rank(context.Background(), []float32{1, 0, 0}, 1)
	require.ErrorIs(t, err, domain.ErrVectorDimMismatch)
}

func TestFlatIndex_ContextCanceled(t *testing.T) {
	idx := NewFlatIndex(corpustest.New(t, corpustest.Koramangala()...))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Rank(ctx, []float32{1, 0}, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func neighborIDs(ns []Neighbor) []int {
	out := make([]int, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}
