package retrieval

import (
	"context"

	"github.com/kailas-cloud/platepick/internal/domain"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
