package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/metrics"
)

// NewRouter mounts the API routes behind the standard middleware stack.
func NewRouter(s *Server, apiKeys []string, l *zap.Logger) http.Handler {
	if l == nil {
		l = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(JSONRecoverer(l))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(l))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})

	r.Get("/", s.Welcome)
	r.Post("/recommend", s.Recommend)
	r.Get("/search", s.Search)
	r.Get("/locations", s.Locations)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}
