// Package langchain adapts langchaingo's OpenAI-compatible client (Ollama, vLLM, LM Studio)
// to the embedding and generation contracts.
package langchain

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/metrics"
)

// noToken is sent to local servers that do not authenticate.
const noToken = "none"

// Config holds the connection settings shared by Embedder and Generator.
type Config struct {
	BaseURL  string
	Token    string // optional for local servers
	Model    string
	Provider string
	Logger   *zap.Logger
}

func (c *Config) token() string {
	if c.Token == "" {
		return noToken
	}
	return c.Token
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Embedder embeds query text through a langchaingo embedder.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	provider string
	logger   *zap.Logger
}

// NewEmbedder creates an embedder against an OpenAI-compatible endpoint.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.token()),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create langchain client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create langchain embedder: %w", err)
	}

	return &Embedder{
		embedder: emb,
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.logger(),
	}, nil
}

// Embed implements domain.Embedder. Token usage is not reported by this client.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	call := metrics.StartEmbedding(e.provider, e.model)
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		call.Fail(metrics.ReasonAPIError)
		return domain.EmbeddingResult{}, fmt.Errorf("langchain embed: %w: %w", domain.ErrEncodingUnavailable, err)
	}
	if len(vec) == 0 {
		call.Fail(metrics.ReasonEmptyResponse)
		return domain.EmbeddingResult{}, fmt.Errorf("langchain embed: empty vector: %w", domain.ErrEncodingUnavailable)
	}

	duration := call.Succeed()

	e.logger.Debug("Langchain embedding completed",
		zap.String("model", e.model),
		zap.Int("dimensions", len(vec)),
		zap.Duration("duration", duration),
	)
	return domain.EmbeddingResult{Embedding: vec}, nil
}
