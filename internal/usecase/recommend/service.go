package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
	"github.com/kailas-cloud/platepick/internal/domain/search/mode"
	"github.com/kailas-cloud/platepick/internal/domain/search/request"
	"github.com/kailas-cloud/platepick/internal/evidence"
	"github.com/kailas-cloud/platepick/internal/logger"
	"github.com/kailas-cloud/platepick/internal/retrieval"
)

// NoMatchMessage is returned instead of generated text when no restaurant passes the filters.
const NoMatchMessage = "I couldn't find any restaurants matching your specific criteria. Try adjusting your filters!"

// DefaultMaxInFlight bounds concurrent encoder and generator calls.
const DefaultMaxInFlight = 16

// Recommendation is the outcome of one query.
type Recommendation struct {
	Text        string
	NoMatch     bool
	Restaurants []restaurant.Restaurant
	Path        mode.Mode
}

// Outcome pairs a batch item's recommendation with its error.
type Outcome struct {
	Recommendation Recommendation
	Err            error
}

// Service orchestrates retrieval, evidence formatting and generation.
type Service struct {
	retriever  Retriever
	generator  Generator
	pool       *ants.Pool
	slots      *semaphore.Weighted // admission to pool, acquired under the caller's ctx
	genTimeout time.Duration
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*options)

type options struct {
	maxInFlight int
	genTimeout  time.Duration
	logger      *zap.Logger
}

// WithMaxInFlight sets the worker pool size shared by retrieval and generation.
func WithMaxInFlight(n int) Option {
	return func(o *options) { o.maxInFlight = n }
}

// WithGenerationTimeout bounds every generator call. Zero disables the bound.
func WithGenerationTimeout(d time.Duration) Option {
	return func(o *options) { o.genTimeout = d }
}

// WithLogger sets the fallback logger used when the request context carries none.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a recommendation service. Call Release when done.
func New(retriever Retriever, generator Generator, opts ...Option) (*Service, error) {
	o := options{maxInFlight: DefaultMaxInFlight}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxInFlight < 1 {
		o.maxInFlight = 1
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	pool, err := ants.NewPool(o.maxInFlight)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{
		retriever:  retriever,
		generator:  generator,
		pool:       pool,
		slots:      semaphore.NewWeighted(int64(o.maxInFlight)),
		genTimeout: o.genTimeout,
		logger:     o.logger,
	}, nil
}

// Release stops the worker pool. The service must not be used afterwards.
func (s *Service) Release() {
	s.pool.Release()
}

// Search runs retrieval only, without generation.
func (s *Service) Search(ctx context.Context, req *request.Request) (retrieval.Result, error) {
	res, err := submit(ctx, s, func() (retrieval.Result, error) {
		return s.retriever.Retrieve(ctx, req)
	})
	if err != nil {
		return retrieval.Result{}, fmt.Errorf("retrieve: %w", err)
	}
	return res, nil
}

// Recommend retrieves evidence for req and asks the generator for a recommendation.
// When retrieval is empty the generator is not called and NoMatchMessage is returned.
func (s *Service) Recommend(ctx context.Context, req *request.Request) (Recommendation, error) {
	log := s.log(ctx)

	res, err := s.Search(ctx, req)
	if err != nil {
		return Recommendation{}, err
	}
	if len(res.Restaurants) == 0 {
		log.Info("No restaurants matched filters", zap.String("path", string(res.Path)))
		return Recommendation{Text: NoMatchMessage, NoMatch: true, Path: res.Path}, nil
	}

	ev := evidence.Format(res.Restaurants)

	start := time.Now()
	text, err := submit(ctx, s, func() (string, error) {
		return s.generate(ctx, req.Text(), ev)
	})
	if err != nil {
		log.Error("Generation failed",
			zap.String("path", string(res.Path)),
			zap.Int("evidence_count", len(res.Restaurants)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return Recommendation{}, err
	}

	log.Debug("Recommendation generated",
		zap.String("path", string(res.Path)),
		zap.Int("evidence_count", len(res.Restaurants)),
		zap.Int("text_len", len(text)),
		zap.Duration("duration", time.Since(start)),
	)

	return Recommendation{Text: text, Restaurants: res.Restaurants, Path: res.Path}, nil
}

// RecommendMany runs Recommend for every request concurrently.
// The output is index-aligned with reqs.
func (s *Service) RecommendMany(ctx context.Context, reqs []request.Request) []Outcome {
	out := make([]Outcome, len(reqs))
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := s.Recommend(logger.With(ctx, zap.Int("batch_index", i)), &reqs[i])
			out[i] = Outcome{Recommendation: rec, Err: err}
		}()
	}
	wg.Wait()
	return out
}

func (s *Service) generate(ctx context.Context, query, ev string) (string, error) {
	if s.genTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.genTimeout)
		defer cancel()
	}

	text, err := s.generator.Generate(ctx, query, ev)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationUnavailable) {
			return "", fmt.Errorf("generate: %w", err)
		}
		return "", fmt.Errorf("generate: %w: %w", domain.ErrGenerationUnavailable, err)
	}
	if text == "" {
		return "", fmt.Errorf("generate: %w: empty response", domain.ErrGenerationUnavailable)
	}
	return text, nil
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

type outcome[T any] struct {
	val T
	err error
}

// submit runs fn on the pool and waits for it or for ctx, whichever comes first.
// A slot is taken before the task is handed to the pool, so Submit at most waits for a
// worker that is already finishing, and a caller whose ctx ends while the pool is
// saturated leaves without running fn.
// The slot is held until fn returns, even if the caller stopped waiting.
func submit[T any](ctx context.Context, s *Service, fn func() (T, error)) (T, error) {
	var zero T
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	done := make(chan outcome[T], 1)
	if err := s.pool.Submit(func() {
		defer s.slots.Release(1)
		v, err := fn()
		done <- outcome[T]{val: v, err: err}
	}); err != nil {
		s.slots.Release(1)
		return zero, fmt.Errorf("submit task: %w", err)
	}

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
