package chi

import (
	"context"

	"github.com/kailas-cloud/platepick/internal/domain/search/request"
	"github.com/kailas-cloud/platepick/internal/retrieval"
	"github.com/kailas-cloud/platepick/internal/usecase/health"
	"github.com/kailas-cloud/platepick/internal/usecase/recommend"
)

// Recommender runs retrieval and generation for one request.
type Recommender interface {
	Recommend(ctx context.Context, req *request.Request) (recommend.Recommendation, error)
	Search(ctx context.Context, req *request.Request) (retrieval.Result, error)
}

// LocationLister lists the distinct corpus locations.
type LocationLister interface {
	Locations() []string
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}
