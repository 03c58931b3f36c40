// Package embcache memoises query embeddings in the key-value store so
// repeated queries skip the encoder.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/platepick/internal/db"
	"github.com/kailas-cloud/platepick/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options tune the cache. Namespace separates vectors of different models.
type Options struct {
	Namespace string
	TTL       time.Duration // zero keeps entries forever
}

// CachedEmbedder is a domain.Embedder decorator backed by a key-value store.
// Concurrent misses for the same text share one encoder call.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	opts       Options
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	inflight singleflight.Group
}

// New wraps inner. cacheTotal takes a "result" label ("hit" / "miss") and may be nil.
func New(
	inner domain.Embedder,
	s store,
	opts Options,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		opts:       opts,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed serves text from the cache when possible. Hits report zero tokens.
// Store failures count as misses; only encoder errors reach the caller.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	// The shared call outlives any single caller; each caller still waits on its own ctx.
	callCtx := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (any, error) {
		res, err := c.inner.Embed(callCtx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		c.save(callCtx, key, res.Embedding)
		return res, nil
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", ctx.Err())
	case r = <-ch:
	}
	if r.Err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", r.Err)
	}

	res := r.Val.(domain.EmbeddingResult)
	if r.Shared {
		// Tokens were spent once, by whichever caller ran the encoder.
		res = domain.EmbeddingResult{Embedding: res.Embedding}
	}
	return res, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) count(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes text so arbitrary queries make bounded, printable keys.
func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	key := cacheKeyPrefix
	if c.opts.Namespace != "" {
		key += c.opts.Namespace + ":"
	}
	return key + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Embedding cache read failed",
			zap.String("key", key), zap.String("op", db.OpOf(err)), zap.Error(err))
		return nil, false
	case len(data) == 0:
		return nil, false
	}

	vec, err := db.BytesToVector(data)
	if err != nil {
		c.logger.Warn("Discarding corrupt cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

// save writes one vector; failures are logged and otherwise ignored.
func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, db.VectorToBytes(vec), c.opts.TTL); err != nil {
		c.logger.Warn("Embedding cache write failed",
			zap.String("key", key), zap.String("op", db.OpOf(err)), zap.Error(err))
	}
}
