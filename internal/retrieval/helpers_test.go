package retrieval

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/kailas-cloud/platepick/internal/corpus"
	"github.com/kailas-cloud/platepick/internal/corpus/corpustest"
	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
)

var testLocations = []string{"Koramangala 5th Block", "Koramangala 7th Block", "Indiranagar", "HSR", "Jayanagar"}

func randomCorpus(t testing.TB, n, dim int, seed uint64) *corpus.Corpus {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	entries := make([]corpustest.Entry, n)
	for i := range entries {
		price := 100 * rng.IntN(20)
		entries[i] = corpustest.Entry{
			Name:     "R",
			Location: testLocations[rng.IntN(len(testLocations))],
			Rating:   float64(rng.IntN(51)) / 10,
			Price:    price,
			Vector:   randomVector(dim, rng.Uint64()),
		}
	}
	return corpustest.New(t, entries...)
}

func randomVector(dim int, seed uint64) []float32 {
	rng := rand.New(rand.NewPCG(seed, 1))
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: f.vector}, nil
}

type countingRanker struct {
	inner Ranker
	calls int
	lastK int
}

func (r *countingRanker) Rank(ctx context.Context, vector []float32, k int) ([]Neighbor, error) {
	r.calls++
	r.lastK = k
	return r.inner.Rank(ctx, vector, k)
}

type staticRanker struct {
	neighbors []Neighbor
	err       error
}

func (r staticRanker) Rank(_ context.Context, _ []float32, k int) ([]Neighbor, error) {
	if r.err != nil {
		return nil, r.err
	}
	if k < len(r.neighbors) {
		return r.neighbors[:k], nil
	}
	return r.neighbors, nil
}

func restaurantIDs(rs []restaurant.Restaurant) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
