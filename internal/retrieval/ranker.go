package retrieval

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/platepick/internal/corpus"
	"github.com/kailas-cloud/platepick/internal/domain"
)

// Neighbor is one ranked corpus entry.
type Neighbor struct {
	ID       int
	Distance float32 // squared Euclidean distance
}

// Ranker orders the corpus by distance to a query vector.
// Rank returns min(k, corpus size) neighbours in ascending distance order.
type Ranker interface {
	Rank(ctx context.Context, vector []float32, k int) ([]Neighbor, error)
}

// ctxCheckEvery is how many rows FlatIndex scans between context checks.
const ctxCheckEvery = 4096

// FlatIndex is an exact brute-force L2 index over the corpus matrix.
// Equal distances are ordered by ascending id, so results are deterministic.
type FlatIndex struct {
	vectors corpus.Vectors
}

var _ Ranker = (*FlatIndex)(nil)

// NewFlatIndex indexes every vector of c.
func NewFlatIndex(c *corpus.Corpus) *FlatIndex {
	return &FlatIndex{vectors: c.Matrix()}
}

// Rank scans all rows and keeps the k closest in a bounded max-heap.
func (f *FlatIndex) Rank(ctx context.Context, vector []float32, k int) ([]Neighbor, error) {
	if len(vector) != f.vectors.Dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrVectorDimMismatch, len(vector), f.vectors.Dim)
	}
	n := f.vectors.Count()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	h := make(maxHeap, 0, k)
	for id := range n {
		if id%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("rank: %w", err)
			}
		}
		nb := Neighbor{ID: id, Distance: squaredL2(vector, f.vectors.Row(id))}
		if len(h) < k {
			heap.Push(&h, nb)
			continue
		}
		if closer(nb, h[0]) {
			h[0] = nb
			heap.Fix(&h, 0)
		}
	}

	out := []Neighbor(h)
	sort.Slice(out, func(i, j int) bool { return closer(out[i], out[j]) })
	return out, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// closer is the total order used by the index: distance, then id.
func closer(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// maxHeap keeps the farthest retained neighbour at the root.
type maxHeap []Neighbor

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(Neighbor)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
