package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/corpus"
	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
	"github.com/kailas-cloud/platepick/internal/domain/search/mode"
	"github.com/kailas-cloud/platepick/internal/domain/search/request"
	"github.com/kailas-cloud/platepick/internal/metrics"
)

// DefaultPoolSize is the semantic candidate pool ranked before intersecting with the filter set.
const DefaultPoolSize = 5000

// Result is an ordered, duplicate-free list of at most TopK restaurants.
type Result struct {
	Restaurants []restaurant.Restaurant
	// Distances is aligned with Restaurants on semantic paths and nil otherwise.
	Distances []float32
	Path      mode.Mode
}

// Retriever combines the attribute filter with semantic ranking.
type Retriever struct {
	corpus   *corpus.Corpus
	embed    Embedder
	ranker   Ranker
	poolSize int
	logger   *zap.Logger
}

// NewRetriever creates a hybrid retriever. poolSize <= 0 selects DefaultPoolSize.
func NewRetriever(c *corpus.Corpus, embed Embedder, ranker Ranker, poolSize int, logger *zap.Logger) *Retriever {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{corpus: c, embed: embed, ranker: ranker, poolSize: poolSize, logger: logger}
}

// Retrieve filters the corpus, ranks it against the query embedding and
// falls back to rating order when the semantic pool misses the filter set.
// Neither the encoder nor the ranker is called when nothing passes the filter.
func (r *Retriever) Retrieve(ctx context.Context, req *request.Request) (Result, error) {
	start := time.Now()

	set := Filter(r.corpus, req.Criteria())
	metrics.FilterSelectivity.Observe(float64(set.Len()) / float64(r.corpus.Len()))

	res, err := r.retrieve(ctx, req, set)
	if err != nil {
		return Result{}, err
	}

	elapsed := time.Since(start)
	metrics.ObserveRetrieval(string(res.Path), len(res.Restaurants), elapsed)
	r.logger.Debug("Retrieval completed",
		zap.String("path", string(res.Path)),
		zap.Int("filtered", set.Len()),
		zap.Int("results", len(res.Restaurants)),
		zap.Duration("duration", elapsed),
	)
	return res, nil
}

func (r *Retriever) retrieve(ctx context.Context, req *request.Request, set IDSet) (Result, error) {
	if set.IsEmpty() {
		return Result{Path: mode.Empty}, nil
	}

	vector, err := r.encode(ctx, req.Text())
	if err != nil {
		return Result{}, err
	}

	topK := req.TopK()

	if set.Len() == r.corpus.Len() {
		neighbors, err := r.ranker.Rank(ctx, vector, topK)
		if err != nil {
			return Result{}, fmt.Errorf("rank: %w", err)
		}
		if res := r.collect(neighbors, set, topK, mode.Unfiltered); len(res.Restaurants) > 0 {
			return res, nil
		}
		return r.fallback(set, topK), nil
	}

	neighbors, err := r.ranker.Rank(ctx, vector, max(r.poolSize, topK))
	if err != nil {
		return Result{}, fmt.Errorf("rank: %w", err)
	}
	if res := r.collect(neighbors, set, topK, mode.Filtered); len(res.Restaurants) > 0 {
		return res, nil
	}
	return r.fallback(set, topK), nil
}

func (r *Retriever) encode(ctx context.Context, text string) ([]float32, error) {
	emb, err := r.embed.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrEncodingUnavailable) {
			return nil, fmt.Errorf("encode query: %w", err)
		}
		return nil, fmt.Errorf("encode query: %w: %w", domain.ErrEncodingUnavailable, err)
	}
	if len(emb.Embedding) == 0 {
		return nil, fmt.Errorf("encode query: %w: empty embedding", domain.ErrEncodingUnavailable)
	}
	return emb.Embedding, nil
}

// collect keeps ranked neighbours that belong to set, in rank order, up to topK.
func (r *Retriever) collect(neighbors []Neighbor, set IDSet, topK int, path mode.Mode) Result {
	res := Result{Path: path}
	seen := make(map[int]struct{}, topK)
	for _, nb := range neighbors {
		if len(res.Restaurants) == topK {
			break
		}
		if !set.Contains(nb.ID) {
			continue
		}
		if _, dup := seen[nb.ID]; dup {
			continue
		}
		seen[nb.ID] = struct{}{}
		res.Restaurants = append(res.Restaurants, *r.corpus.At(nb.ID))
		res.Distances = append(res.Distances, nb.Distance)
	}
	return res
}

// fallback orders the filter set by rating descending, then id ascending.
func (r *Retriever) fallback(set IDSet, topK int) Result {
	ids := append([]int(nil), set.IDs()...)
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.corpus.At(ids[i]), r.corpus.At(ids[j])
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	})
	if len(ids) > topK {
		ids = ids[:topK]
	}

	res := Result{Path: mode.Fallback, Restaurants: make([]restaurant.Restaurant, len(ids))}
	for i, id := range ids {
		res.Restaurants[i] = *r.corpus.At(id)
	}
	return res
}
