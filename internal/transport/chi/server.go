package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
	"github.com/kailas-cloud/platepick/internal/domain/search/request"
	"github.com/kailas-cloud/platepick/internal/logger"
	healthuc "github.com/kailas-cloud/platepick/internal/usecase/health"
	"github.com/kailas-cloud/platepick/internal/version"
)

// WelcomeMessage is the body of GET /.
const WelcomeMessage = "Welcome to the AI Restaurant Recommendation API"

// maxBodyBytes bounds POST /recommend bodies.
const maxBodyBytes = 64 << 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the recommendation API.
type Server struct {
	recommender   Recommender
	locations     LocationLister
	health        HealthChecker
	defaultTopK   int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(recommender Recommender, locations LocationLister, health HealthChecker, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	s := &Server{
		recommender: recommender,
		locations:   locations,
		health:      health,
		logger:      l,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusUnprocessableEntity, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrEncodingUnavailable, http.StatusBadGateway, ErrorCodeEncodingUnavailable),
		sentinelHandler(domain.ErrGenerationUnavailable, http.StatusBadGateway, ErrorCodeGenerationUnavailable),
	}
	return s
}

// WithDefaultTopK sets the result count used when a request omits top_k.
func (s *Server) WithDefaultTopK(k int) *Server {
	s.defaultTopK = k
	return s
}

func (s *Server) topK(p *int) int {
	if p != nil {
		return *p
	}
	return s.defaultTopK
}

// Welcome handles GET /.
func (s *Server) Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, WelcomeResponse{Message: WelcomeMessage, Version: version.Version})
}

// Recommend handles POST /recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var body RecommendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := request.Parse(body.Query, deref(body.Location), body.MaxPrice, deref(body.MinRating), s.topK(body.TopK))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	rec, err := s.recommender.Recommend(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setEmbeddingHeaders(w, usage)

	writeJSON(w, http.StatusOK, RecommendResponse{
		Recommendation: rec.Text,
		NoMatch:        rec.NoMatch,
		Path:           string(rec.Path),
		Restaurants:    restaurantsToAPI(rec.Restaurants),
	})
}

// searchParams are the query parameters of GET /search.
// q is bound as optional so that a missing query is reported by request validation (422).
type searchParams struct {
	Q         *string
	Location  *string
	MaxPrice  *int
	MinRating *float64
	TopK      *int
}

func bindSearchParams(r *http.Request) (searchParams, error) {
	var p searchParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "q", q, &p.Q); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "location", q, &p.Location); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "max_price", q, &p.MaxPrice); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "min_rating", q, &p.MinRating); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", q, &p.TopK); err != nil {
		return p, err
	}
	return p, nil
}

// Search handles GET /search. It runs retrieval only.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	p, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	req, err := request.Parse(deref(p.Q), deref(p.Location), p.MaxPrice, deref(p.MinRating), s.topK(p.TopK))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.recommender.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setEmbeddingHeaders(w, usage)

	items := make([]SearchResult, len(res.Restaurants))
	for i := range res.Restaurants {
		items[i] = SearchResult{Restaurant: restaurantToAPI(&res.Restaurants[i])}
		if i < len(res.Distances) {
			d := res.Distances[i]
			items[i].Distance = &d
		}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Path: string(res.Path), Results: items})
}

// Locations handles GET /locations.
func (s *Server) Locations(w http.ResponseWriter, _ *http.Request) {
	locs := s.locations.Locations()
	if locs == nil {
		locs = []string{}
	}
	writeJSON(w, http.StatusOK, LocationsResponse{Locations: locs})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:     string(report.Status),
		CorpusSize: report.CorpusSize,
		Checks:     checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func restaurantToAPI(r *restaurant.Restaurant) Restaurant {
	return Restaurant{
		ID:          r.ID,
		Name:        r.Name,
		Location:    r.Location,
		Type:        r.Type,
		Cuisines:    r.Cuisines,
		Rating:      r.Rating,
		PriceForTwo: r.PriceForTwo,
	}
}

func restaurantsToAPI(rs []restaurant.Restaurant) []Restaurant {
	out := make([]Restaurant, len(rs))
	for i := range rs {
		out[i] = restaurantToAPI(&rs[i])
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrNotFound,
		domain.ErrEncodingUnavailable,
		domain.ErrGenerationUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
