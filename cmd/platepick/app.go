package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/config"
	"github.com/kailas-cloud/platepick/internal/corpus"
	"github.com/kailas-cloud/platepick/internal/corpus/badgersrc"
	"github.com/kailas-cloud/platepick/internal/corpus/filesrc"
	"github.com/kailas-cloud/platepick/internal/db"
	dbRedis "github.com/kailas-cloud/platepick/internal/db/redis"
	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/platepick/internal/logger"
	"github.com/kailas-cloud/platepick/internal/metrics"
	"github.com/kailas-cloud/platepick/internal/repository/embcache"
	"github.com/kailas-cloud/platepick/internal/repository/vectorindex"
	"github.com/kailas-cloud/platepick/internal/retrieval"
	langchainTransport "github.com/kailas-cloud/platepick/internal/transport/langchain"
	openaiTransport "github.com/kailas-cloud/platepick/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/platepick/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/platepick/internal/usecase/health"
	"github.com/kailas-cloud/platepick/internal/usecase/recommend"
	"github.com/kailas-cloud/platepick/internal/version"
)

// recommender is the part of recommend.Service the commands use.
type recommender interface {
	Recommend(ctx context.Context, req *request.Request) (recommend.Recommendation, error)
	RecommendMany(ctx context.Context, reqs []request.Request) []recommend.Outcome
	Search(ctx context.Context, req *request.Request) (retrieval.Result, error)
}

// app holds the services assembled by the composition root.
type app struct {
	cfg         config.Config
	logger      *zap.Logger
	corpus      *corpus.Corpus
	recommender recommender
	health      *healthuc.Service
	closers     []func()
}

type appFactory func(cmd *cobra.Command) (*app, error)

// Close releases resources in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// buildApp loads configuration and wires the full stack:
// corpus -> ranker -> embedder chain -> retriever -> generator -> recommend service.
func buildApp(cmd *cobra.Command) (*app, error) {
	cfg, env, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	logger.Info("Starting platepick",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("corpus_source", cfg.Corpus.Source),
		zap.String("ranker", cfg.Retrieval.Ranker),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	metrics.Register()

	c, err := loadCorpus(cfg.Corpus, logger)
	if err != nil {
		return err
	}
	a.corpus = c
	logger.Info("Corpus loaded",
		zap.Int("restaurants", c.Len()),
		zap.Int("dimensions", c.Dimension()),
		zap.Int("locations", len(c.Locations())),
	)

	var store db.Store
	if cfg.NeedsDatabase() {
		store, err = openStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	}

	ranker, err := buildRanker(ctx, cfg.Retrieval, c, store, logger)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(cfg, store, c.Dimension(), logger)
	if err != nil {
		return err
	}

	generator, err := buildGenerator(cfg.Generation, logger)
	if err != nil {
		return err
	}

	retriever := retrieval.NewRetriever(c, embedder, ranker, cfg.Retrieval.SemanticPoolSize, logger)
	svc, err := recommend.New(retriever, generator,
		recommend.WithMaxInFlight(cfg.Pipeline.MaxInFlight),
		recommend.WithGenerationTimeout(time.Duration(cfg.Generation.TimeoutSec)*time.Second),
		recommend.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create recommend service: %w", err)
	}
	a.closers = append(a.closers, svc.Release)
	a.recommender = svc

	// Pass nil interfaces (not typed nil pointers) for absent components.
	var pinger healthuc.Pinger
	if store != nil {
		pinger = store
	}
	a.health = healthuc.New(c, pinger, healthCheckerOf(embedder), healthCheckerOf(generator))
	return nil
}

func loadCorpus(cfg config.CorpusConfig, logger *zap.Logger) (*corpus.Corpus, error) {
	switch cfg.Source {
	case config.SourceBadger:
		st, err := badgersrc.Open(badgersrc.Options{Dir: cfg.BadgerDir, ReadOnly: true, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCorpusLoad, err)
		}
		defer func() { _ = st.Close() }()
		c, err := corpus.Load(st, st)
		if err != nil {
			return nil, fmt.Errorf("load corpus from %s: %w", cfg.BadgerDir, err)
		}
		return c, nil
	default:
		c, err := corpus.Load(
			filesrc.AttributeFile{Path: cfg.AttributesPath},
			filesrc.VectorFile{Path: cfg.VectorsPath},
		)
		if err != nil {
			return nil, fmt.Errorf("load corpus from %s: %w", cfg.AttributesPath, err)
		}
		return c, nil
	}
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	return store, nil
}

func buildRanker(
	ctx context.Context,
	cfg config.RetrievalConfig,
	c *corpus.Corpus,
	store db.Store,
	logger *zap.Logger,
) (retrieval.Ranker, error) {
	if cfg.Ranker != config.RankerRedis {
		return retrieval.NewFlatIndex(c), nil
	}
	if store == nil {
		return nil, errors.New("redis ranker requires a database store")
	}

	idx := vectorindex.New(store, cfg.IndexName, logger).WithHNSW(vectorindex.HNSWConfig{
		Algorithm:   db.VectorAlgorithm(strings.ToUpper(cfg.IndexAlgorithm)),
		M:           cfg.HNSWM,
		EFConstruct: cfg.HNSWEFConstruct,
	})
	if err := idx.Sync(ctx, c); err != nil {
		return nil, fmt.Errorf("sync vector index: %w", err)
	}
	return idx, nil
}

// buildEmbedder assembles the decorator chain: provider -> cached -> instrumented -> instruction.
func buildEmbedder(cfg config.Config, store db.Store, dim int, logger *zap.Logger) (domain.Embedder, error) {
	ec := cfg.Embedding

	var base domain.Embedder
	switch ec.Provider {
	case config.ProviderLangchain:
		lc, err := langchainTransport.NewEmbedder(&langchainTransport.Config{
			BaseURL:  ec.BaseURL,
			Token:    ec.APIKey,
			Model:    ec.Model,
			Provider: ec.Provider,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		base = lc
	default:
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:   ec.APIKey,
			BaseURL:  ec.BaseURL,
			Model:    ec.Model,
			Provider: ec.Provider,
			Logger:   logger,
		})
	}

	embedder := base
	if cfg.Cache.Enabled && store != nil {
		embedder = embcache.New(base, store, embcache.Options{
			Namespace: ec.Model,
			TTL:       time.Duration(cfg.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, dim, logger)

	// outermost, so the cache key includes the instruction
	if ec.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
	}
	return embedder, nil
}

func buildGenerator(cfg config.GenerationConfig, logger *zap.Logger) (domain.Generator, error) {
	switch cfg.Provider {
	case config.ProviderLangchain:
		g, err := langchainTransport.NewGenerator(&langchainTransport.GeneratorConfig{
			Config: langchainTransport.Config{
				BaseURL:  cfg.BaseURL,
				Token:    cfg.APIKey,
				Model:    cfg.Model,
				Provider: cfg.Provider,
				Logger:   logger,
			},
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			SystemPrompt: cfg.SystemPrompt,
		})
		if err != nil {
			return nil, fmt.Errorf("create generator: %w", err)
		}
		return g, nil
	default:
		return openaiTransport.NewChatGenerator(&openaiTransport.ChatConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Temperature:  float32(cfg.Temperature),
			MaxTokens:    cfg.MaxTokens,
			SystemPrompt: cfg.SystemPrompt,
			Provider:     cfg.Provider,
			Logger:       logger,
		}), nil
	}
}

// healthCheckerOf returns v as a health checker, or nil when v cannot report health.
func healthCheckerOf(v any) healthuc.Checker {
	if hc, ok := v.(domain.HealthChecker); ok {
		return hc
	}
	return nil
}
