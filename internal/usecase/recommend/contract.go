package recommend

import (
	"context"

	"github.com/kailas-cloud/platepick/internal/domain/search/request"
	"github.com/kailas-cloud/platepick/internal/retrieval"
)

// Retriever produces the bounded evidence set for a query.
type Retriever interface {
	Retrieve(ctx context.Context, req *request.Request) (retrieval.Result, error)
}

// Generator turns the query and formatted evidence into recommendation text.
type Generator interface {
	Generate(ctx context.Context, query, evidence string) (string, error)
}
