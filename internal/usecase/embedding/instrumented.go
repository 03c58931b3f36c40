package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/domain"
)

// InstrumentedEmbedder wraps Embedder with shape checks and logging.
// Transport metrics (requests, duration, tokens) are recorded in the transport packages.
type InstrumentedEmbedder struct {
	inner       domain.Embedder
	provider    string
	model       string
	expectedDim int
	logger      *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. expectedDim 0 disables the dimension check.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	expectedDim int, logger *zap.Logger,
) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:       inner,
		provider:    provider,
		model:       model,
		expectedDim: expectedDim,
		logger:      logger,
	}
}

// Embed delegates to the inner embedder and validates the vector it returns.
// An empty vector is reported as domain.ErrEncodingUnavailable; a vector of the
// wrong width as domain.ErrVectorDimMismatch.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if len(result.Embedding) == 0 {
		p.logger.Error("Embedding provider returned an empty vector",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("%w: empty vector from %s", domain.ErrEncodingUnavailable, p.provider)
	}
	if p.expectedDim > 0 && len(result.Embedding) != p.expectedDim {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %s/%s returned %d dimensions, corpus has %d",
			domain.ErrVectorDimMismatch, p.provider, p.model, len(result.Embedding), p.expectedDim)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)
	return result, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
