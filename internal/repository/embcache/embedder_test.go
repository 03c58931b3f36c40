package embcache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/platepick/internal/db"
	"github.com/kailas-cloud/platepick/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(inner, Options{})
	ctx := context.Background()

	var stored []byte
	ms.setFn = func(_ context.Context, _ string, value []byte, _ time.Duration) error {
		stored = value
		return nil
	}

	result, err := ce.Embed(ctx, "cheap biryani")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if len(stored) != 12 {
		t.Fatalf("expected 12 cached bytes, got %d", len(stored))
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	ce, ms := newTestCachedEmbedder(inner, Options{})
	ctx := context.Background()

	cached := db.VectorToBytes([]float32{0.4, 0.5, 0.6})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	result, err := ce.Embed(ctx, "cheap biryani")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if inner.calls != 0 {
		t.Fatalf("expected inner not to be called, got %d calls", inner.calls)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	down := errors.New("provider down")
	inner := &mockEmbedder{err: down}
	ce, ms := newTestCachedEmbedder(inner, Options{})

	var setCalled bool
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		setCalled = true
		return nil
	}

	_, err := ce.Embed(context.Background(), "test text")
	if !errors.Is(err, down) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
	if setCalled {
		t.Fatal("failed embeddings must not be cached")
	}
}

func TestEmbed_StoreErrorsDegradeToMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(inner, Options{})

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: context.DeadlineExceeded}
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return &db.Error{Op: db.OpSet, Err: context.DeadlineExceeded}
	}

	result, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("store failures must not fail the embed: %v", err)
	}
	if len(result.Embedding) != 1 || inner.calls != 1 {
		t.Fatalf("expected inner result, got %v after %d calls", result.Embedding, inner.calls)
	}
}

func TestEmbed_CorruptCacheEntry(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
	ce, ms := newTestCachedEmbedder(inner, Options{})

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte{1, 2, 3}, nil
	}

	result, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 || len(result.Embedding) != 2 {
		t.Fatalf("expected fallthrough to inner, got %v", result.Embedding)
	}
}

func TestEmbed_TTL(t *testing.T) {
	for _, ttl := range []time.Duration{0, time.Hour} {
		t.Run(ttl.String(), func(t *testing.T) {
			inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
			ce, ms := newTestCachedEmbedder(inner, Options{TTL: ttl})

			gotTTL := time.Duration(-1)
			ms.setFn = func(_ context.Context, _ string, _ []byte, d time.Duration) error {
				gotTTL = d
				return nil
			}

			if _, err := ce.Embed(context.Background(), "q"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotTTL != ttl {
				t.Fatalf("expected TTL %v, got %v", ttl, gotTTL)
			}
		})
	}
}

func TestCacheKey(t *testing.T) {
	plain, _ := newTestCachedEmbedder(&mockEmbedder{}, Options{})
	scoped, _ := newTestCachedEmbedder(&mockEmbedder{}, Options{Namespace: "bge-small"})

	k1 := plain.cacheKey("dosa")
	k2 := scoped.cacheKey("dosa")

	if !strings.HasPrefix(k1, "platepick:emb_cache:") {
		t.Errorf("unexpected key prefix: %s", k1)
	}
	if !strings.HasPrefix(k2, "platepick:emb_cache:bge-small:") {
		t.Errorf("expected namespaced key, got %s", k2)
	}
	if plain.cacheKey("dosa") != k1 {
		t.Error("key must be deterministic")
	}
	if plain.cacheKey("idli") == k1 {
		t.Error("different texts must map to different keys")
	}
}

func TestEmbed_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ms := &mockKVStore{}
	ce := New(inner, ms, Options{}, counter, nil)

	if _, err := ce.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return db.VectorToBytes([]float32{1}), nil
	}
	if _, err := ce.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit = %v, want 1", got)
	}
}

func TestHealthCheck_Forwards(t *testing.T) {
	down := errors.New("down")
	ce, _ := newTestCachedEmbedder(&mockEmbedder{healthErr: down}, Options{})
	if err := ce.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected %v, got %v", down, err)
	}
}

// blockingEmbedder holds every call until release is closed.
type blockingEmbedder struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
		return domain.EmbeddingResult{Embedding: []float32{1, 2}, TotalTokens: 7}, nil
	case <-ctx.Done():
		return domain.EmbeddingResult{}, ctx.Err()
	}
}

func TestEmbed_ConcurrentMissesShareOneCall(t *testing.T) {
	inner := &blockingEmbedder{started: make(chan struct{}), release: make(chan struct{})}
	ce := New(inner, &mockKVStore{}, Options{}, nil, nil)

	const callers = 4
	var wg sync.WaitGroup
	results := make([]domain.EmbeddingResult, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ce.Embed(context.Background(), "masala dosa")
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = res
		}()
	}

	<-inner.started
	time.Sleep(20 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("encoder called %d times, want 1", got)
	}
	tokens := 0
	for _, r := range results {
		if len(r.Embedding) != 2 {
			t.Fatalf("unexpected embedding %v", r.Embedding)
		}
		tokens += r.TotalTokens
	}
	if tokens > 7 {
		t.Errorf("tokens counted %d times over, want at most 7 total", tokens)
	}
}

func TestEmbed_FirstCallerCancelDoesNotFailOthers(t *testing.T) {
	inner := &blockingEmbedder{started: make(chan struct{}), release: make(chan struct{})}
	ce := New(inner, &mockKVStore{}, Options{}, nil, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := ce.Embed(firstCtx, "paneer tikka")
		firstErr <- err
	}()
	<-inner.started

	type outcome struct {
		res domain.EmbeddingResult
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := ce.Embed(context.Background(), "paneer tikka")
		second <- outcome{res, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller: expected context.Canceled, got %v", err)
	}

	close(inner.release)
	got := <-second
	if got.err != nil {
		t.Fatalf("second caller: unexpected error: %v", got.err)
	}
	if len(got.res.Embedding) != 2 {
		t.Errorf("second caller: expected 2-dim vector, got %v", got.res.Embedding)
	}
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("encoder called %d times, want 1", n)
	}
}
