package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/corpus"
	"github.com/kailas-cloud/platepick/internal/db"
	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/retrieval"
)

// store is the consumer interface for the vector index (ISP).
//
//nolint:interfacebloat // index lifecycle + bulk writes + KNN
type store interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, records []db.HashRecord) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig vector index parameters.
type HNSWConfig struct {
	Algorithm   db.VectorAlgorithm
	M           int
	EFConstruct int
}

const defaultBatchSize = 500

// Index is a retrieval.Ranker backed by a Redis/Valkey FT vector index.
type Index struct {
	store     store
	name      string
	hnsw      HNSWConfig
	batchSize int
	logger    *zap.Logger

	dim  int
	size int
}

var _ retrieval.Ranker = (*Index)(nil)

// New creates an index handle. Sync must run before Rank.
func New(s store, name string, logger *zap.Logger) *Index {
	if name == "" {
		name = DefaultIndexName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		store:     s,
		name:      name,
		hnsw:      HNSWConfig{Algorithm: db.VectorHNSW, M: 16, EFConstruct: 200},
		batchSize: defaultBatchSize,
		logger:    logger,
	}
}

// WithHNSW configures vector index parameters.
func (x *Index) WithHNSW(cfg HNSWConfig) *Index {
	if cfg.Algorithm.IsValid() {
		x.hnsw.Algorithm = cfg.Algorithm
	}
	if cfg.M > 0 {
		x.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		x.hnsw.EFConstruct = cfg.EFConstruct
	}
	return x
}

// WithBatchSize sets how many hashes go into one pipelined write.
func (x *Index) WithBatchSize(n int) *Index {
	if n > 0 {
		x.batchSize = n
	}
	return x
}

// Name returns the FT index name.
func (x *Index) Name() string { return x.name }

// Sync makes the store mirror c. An index whose recorded size, dimension and
// content fingerprint match c is reused as is; otherwise it is dropped and rebuilt.
func (x *Index) Sync(ctx context.Context, c *corpus.Corpus) error {
	want, err := metaOf(c)
	if err != nil {
		return fmt.Errorf("fingerprint corpus: %w", err)
	}

	exists, err := x.store.IndexExists(ctx, x.name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", x.name, err)
	}
	if exists {
		if x.upToDate(ctx, want) {
			x.logger.Info("Vector index up to date",
				zap.String("index", x.name), zap.Int("count", want.count), zap.Int("dim", want.dim))
			x.dim, x.size = want.dim, want.count
			return nil
		}
		if err := x.drop(ctx); err != nil {
			return err
		}
	}

	def, err := buildIndex(x.name, want.dim, x.hnsw)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := x.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", x.name, err)
	}

	if err := x.writeAll(ctx, c); err != nil {
		return err
	}
	if err := x.store.HSet(ctx, metaKey(x.name), want.toHash()); err != nil {
		return fmt.Errorf("write index meta: %w", err)
	}

	x.dim, x.size = want.dim, want.count
	x.logger.Info("Vector index built",
		zap.String("index", x.name),
		zap.String("algorithm", string(x.hnsw.Algorithm)),
		zap.Int("count", want.count),
		zap.Int("dim", want.dim),
	)
	return nil
}

func (x *Index) upToDate(ctx context.Context, want meta) bool {
	h, err := x.store.HGetAll(ctx, metaKey(x.name))
	if err != nil {
		x.logger.Warn("Failed to read index meta",
			zap.String("index", x.name), zap.String("op", db.OpOf(err)), zap.Error(err))
		return false
	}
	got, ok := metaFromHash(h)
	if !ok || got != want {
		return false
	}
	n, err := x.store.SearchCount(ctx, x.name, "*")
	if err != nil {
		x.logger.Warn("Failed to count indexed documents",
			zap.String("index", x.name), zap.String("op", db.OpOf(err)), zap.Error(err))
		return false
	}
	return n == want.count
}

// drop removes the index, its documents and its meta record.
func (x *Index) drop(ctx context.Context) error {
	if err := x.store.DropIndex(ctx, x.name, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", x.name, err)
	}
	if err := x.store.Del(ctx, metaKey(x.name)); err != nil {
		return fmt.Errorf("delete index meta: %w", err)
	}
	x.logger.Info("Dropped stale vector index", zap.String("index", x.name))
	return nil
}

func (x *Index) writeAll(ctx context.Context, c *corpus.Corpus) error {
	prefix := docPrefix(x.name)
	batch := make([]db.HashRecord, 0, min(x.batchSize, c.Len()))

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := x.store.HSetMulti(ctx, batch); err != nil {
			return fmt.Errorf("write restaurants: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for id := range c.Len() {
		vec, err := c.Vector(id)
		if err != nil {
			return fmt.Errorf("vector %d: %w", id, err)
		}
		batch = append(batch, db.HashRecord{
			Key:    prefix + strconv.Itoa(id),
			Fields: restaurantToHash(c.At(id), vec),
		})
		if len(batch) == x.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Rank returns min(k, indexed size) neighbours by ascending L2 distance.
// HNSW is approximate, so equal-distance ordering is normalised by id here.
func (x *Index) Rank(ctx context.Context, vector []float32, k int) ([]retrieval.Neighbor, error) {
	if x.dim == 0 {
		return nil, fmt.Errorf("vector index %s: not synced", x.name)
	}
	if len(vector) != x.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrVectorDimMismatch, len(vector), x.dim)
	}
	if k > x.size {
		k = x.size
	}
	if k <= 0 {
		return nil, nil
	}

	res, err := x.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    x.name,
		VectorField:  fieldVector,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldID},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	out := make([]retrieval.Neighbor, 0, len(res.Entries))
	for i := range res.Entries {
		id, err := entryID(&res.Entries[i])
		if err != nil {
			x.logger.Warn("Skipping unparsable hit", zap.String("key", res.Entries[i].Key), zap.Error(err))
			continue
		}
		if id < 0 || id >= x.size {
			// Leftover document from a larger, older corpus.
			continue
		}
		out = append(out, retrieval.Neighbor{ID: id, Distance: float32(res.Entries[i].Score)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// HealthCheck pings the backing store.
func (x *Index) HealthCheck(ctx context.Context) error {
	if err := x.store.Ping(ctx); err != nil {
		return fmt.Errorf("vector index store: %w", err)
	}
	return nil
}
