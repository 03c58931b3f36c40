package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
	"github.com/kailas-cloud/platepick/internal/domain/search/mode"
	"github.com/kailas-cloud/platepick/internal/domain/search/request"
	"github.com/kailas-cloud/platepick/internal/retrieval"
	"github.com/kailas-cloud/platepick/internal/usecase/health"
	"github.com/kailas-cloud/platepick/internal/usecase/recommend"
)

type mockRecommender struct {
	recommendFn func(ctx context.Context, req *request.Request) (recommend.Recommendation, error)
	searchFn    func(ctx context.Context, req *request.Request) (retrieval.Result, error)
}

func (m *mockRecommender) Recommend(ctx context.Context, req *request.Request) (recommend.Recommendation, error) {
	if m.recommendFn == nil {
		return recommend.Recommendation{}, errors.New("unexpected Recommend call")
	}
	return m.recommendFn(ctx, req)
}

func (m *mockRecommender) Search(ctx context.Context, req *request.Request) (retrieval.Result, error) {
	if m.searchFn == nil {
		return retrieval.Result{}, errors.New("unexpected Search call")
	}
	return m.searchFn(ctx, req)
}

type staticLocations []string

func (s staticLocations) Locations() []string { return s }

type staticHealth health.Report

func (s staticHealth) Check(context.Context) health.Report { return health.Report(s) }

var koramangalaPicks = []restaurant.Restaurant{
	{ID: 2, Name: "Truffles", Location: "Koramangala 5th Block", Cuisines: "Cafe, American", Rating: 4.7, PriceForTwo: 900},
	{ID: 0, Name: "Meghana Foods", Location: "Koramangala 5th Block", Cuisines: "Biryani", Rating: 4.4, PriceForTwo: 600},
}

func newTestRouter(rec Recommender, apiKeys ...string) http.Handler {
	srv := NewServer(
		rec,
		staticLocations{"BTM", "Indiranagar", "Koramangala 5th Block"},
		staticHealth{Status: health.Healthy, CorpusSize: 3, Checks: map[string]health.CheckResult{"corpus": health.CheckOK}},
		nil,
	)
	return NewRouter(srv, apiKeys, nil)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestWelcome(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{}), http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp WelcomeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != WelcomeMessage {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Version == "" {
		t.Error("expected version")
	}
}

func TestRecommend_Success(t *testing.T) {
	var got *request.Request
	rec := &mockRecommender{
		recommendFn: func(_ context.Context, req *request.Request) (recommend.Recommendation, error) {
			got = req
			return recommend.Recommendation{
				Text:        "Try Truffles for burgers.",
				Restaurants: koramangalaPicks,
				Path:        mode.Filtered,
			}, nil
		},
	}

	body := `{"query":"good burgers","location":"Koramangala","max_price":1000,"min_rating":4,"top_k":2}`
	rr := do(t, newTestRouter(rec), http.MethodPost, "/recommend", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	if got == nil {
		t.Fatal("recommender not called")
	}
	if got.Text() != "good burgers" {
		t.Errorf("text = %q", got.Text())
	}
	if got.TopK() != 2 {
		t.Errorf("top_k = %d, want 2", got.TopK())
	}
	crit := got.Criteria()
	if crit.Location() != "koramangala" {
		t.Errorf("location = %q", crit.Location())
	}
	if mp, ok := crit.MaxPrice(); !ok || mp != 1000 {
		t.Errorf("max_price = %d, %v", mp, ok)
	}
	if crit.MinRating() != 4 {
		t.Errorf("min_rating = %v", crit.MinRating())
	}

	var resp RecommendResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Recommendation != "Try Truffles for burgers." {
		t.Errorf("recommendation = %q", resp.Recommendation)
	}
	if resp.NoMatch {
		t.Error("no_match must be false")
	}
	if resp.Path != "filtered" {
		t.Errorf("path = %q", resp.Path)
	}
	if len(resp.Restaurants) != 2 || resp.Restaurants[0].Name != "Truffles" {
		t.Errorf("restaurants = %+v", resp.Restaurants)
	}
}

func TestRecommend_EmbeddingTokensHeader(t *testing.T) {
	rec := &mockRecommender{
		recommendFn: func(ctx context.Context, _ *request.Request) (recommend.Recommendation, error) {
			domain.UsageFromContext(ctx).AddTokens(12)
			return recommend.Recommendation{Text: "ok", Path: mode.Unfiltered}, nil
		},
	}
	rr := do(t, newTestRouter(rec), http.MethodPost, "/recommend", `{"query":"dosa"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "12" {
		t.Errorf("X-Embedding-Tokens = %q, want 12", got)
	}
}

func TestRecommend_DefaultsTopK(t *testing.T) {
	var topK int
	rec := &mockRecommender{
		recommendFn: func(_ context.Context, req *request.Request) (recommend.Recommendation, error) {
			topK = req.TopK()
			return recommend.Recommendation{Text: "ok", Path: mode.Unfiltered}, nil
		},
	}
	rr := do(t, newTestRouter(rec), http.MethodPost, "/recommend", `{"query":"dosa"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if topK != request.DefaultTopK {
		t.Errorf("top_k = %d, want %d", topK, request.DefaultTopK)
	}
}

func TestSearch_ConfiguredDefaultTopK(t *testing.T) {
	var topK int
	rec := &mockRecommender{
		searchFn: func(_ context.Context, req *request.Request) (retrieval.Result, error) {
			topK = req.TopK()
			return retrieval.Result{Path: mode.Empty}, nil
		},
	}
	srv := NewServer(rec, staticLocations{}, staticHealth{}, nil).WithDefaultTopK(8)
	rr := do(t, NewRouter(srv, nil, nil), http.MethodGet, "/search?q=dosa", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if topK != 8 {
		t.Errorf("top_k = %d, want 8", topK)
	}
}

func TestRecommend_NoMatch(t *testing.T) {
	rec := &mockRecommender{
		recommendFn: func(context.Context, *request.Request) (recommend.Recommendation, error) {
			return recommend.Recommendation{Text: recommend.NoMatchMessage, NoMatch: true, Path: mode.Empty}, nil
		},
	}
	rr := do(t, newTestRouter(rec), http.MethodPost, "/recommend", `{"query":"sushi","location":"Atlantis"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp RecommendResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.NoMatch || resp.Recommendation != recommend.NoMatchMessage {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Restaurants == nil || len(resp.Restaurants) != 0 {
		t.Errorf("restaurants must be an empty list, got %v", resp.Restaurants)
	}
}

func TestRecommend_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing query", `{"location":"BTM"}`},
		{"blank query", `{"query":"   "}`},
		{"non-positive max price", `{"query":"pizza","max_price":0}`},
		{"rating out of range", `{"query":"pizza","min_rating":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(&mockRecommender{}), http.MethodPost, "/recommend", tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rr.Code)
			}
			if resp := decodeError(t, rr); resp.Code != ErrorCodeValidationFailed {
				t.Errorf("code = %s", resp.Code)
			}
		})
	}
}

func TestRecommend_InvalidJSON(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{}), http.MethodPost, "/recommend", `{"query":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorCodeBadRequest {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestRecommend_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
		wantMsg    string
	}{
		{
			"encoding unavailable",
			fmt.Errorf("retrieve: %w: connection refused", domain.ErrEncodingUnavailable),
			http.StatusBadGateway, ErrorCodeEncodingUnavailable, "encoding unavailable",
		},
		{
			"generation unavailable",
			fmt.Errorf("generate: %w: rate limited", domain.ErrGenerationUnavailable),
			http.StatusBadGateway, ErrorCodeGenerationUnavailable, "generation unavailable",
		},
		{
			"not found",
			fmt.Errorf("lookup: %w", domain.ErrNotFound),
			http.StatusNotFound, ErrorCodeNotFound, "not found",
		},
		{
			"unknown error hides details",
			errors.New("redis: secret-host:6379 refused"),
			http.StatusInternalServerError, ErrorCodeInternalError, "internal error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockRecommender{
				recommendFn: func(context.Context, *request.Request) (recommend.Recommendation, error) {
					return recommend.Recommendation{}, tt.err
				},
			}
			rr := do(t, newTestRouter(rec), http.MethodPost, "/recommend", `{"query":"biryani"}`)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestSearch_BindsQueryParameters(t *testing.T) {
	var got *request.Request
	rec := &mockRecommender{
		searchFn: func(_ context.Context, req *request.Request) (retrieval.Result, error) {
			got = req
			return retrieval.Result{
				Restaurants: koramangalaPicks,
				Distances:   []float32{0.25, 0.5},
				Path:        mode.Filtered,
			}, nil
		},
	}

	rr := do(t, newTestRouter(rec), http.MethodGet,
		"/search?q=coffee&location=Koramangala&max_price=950&min_rating=4.2&top_k=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	if got.Text() != "coffee" || got.TopK() != 3 {
		t.Errorf("request = %q / %d", got.Text(), got.TopK())
	}
	if mp, ok := got.Criteria().MaxPrice(); !ok || mp != 950 {
		t.Errorf("max_price = %d, %v", mp, ok)
	}
	if got.Criteria().MinRating() != 4.2 {
		t.Errorf("min_rating = %v", got.Criteria().MinRating())
	}

	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Path != "filtered" || len(resp.Results) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Results[0].Distance == nil || *resp.Results[0].Distance != 0.25 {
		t.Errorf("first distance = %v", resp.Results[0].Distance)
	}
	if resp.Results[1].ID != 0 || resp.Results[1].Name != "Meghana Foods" {
		t.Errorf("second result = %+v", resp.Results[1])
	}
}

func TestSearch_FallbackOmitsDistance(t *testing.T) {
	rec := &mockRecommender{
		searchFn: func(context.Context, *request.Request) (retrieval.Result, error) {
			return retrieval.Result{Restaurants: koramangalaPicks[:1], Path: mode.Fallback}, nil
		},
	}
	rr := do(t, newTestRouter(rec), http.MethodGet, "/search?q=coffee", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "distance") {
		t.Errorf("fallback results must not carry distances: %s", rr.Body.String())
	}
}

func TestSearch_BadParameters(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"missing q", "/search", http.StatusUnprocessableEntity},
		{"non-numeric max_price", "/search?q=tea&max_price=cheap", http.StatusBadRequest},
		{"non-numeric top_k", "/search?q=tea&top_k=many", http.StatusBadRequest},
		{"rating out of range", "/search?q=tea&min_rating=9", http.StatusUnprocessableEntity},
		{"rating NaN", "/search?q=tea&min_rating=NaN", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(&mockRecommender{}), http.MethodGet, tt.target, "")
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestLocations(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{}), http.MethodGet, "/locations", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp LocationsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Locations) != 3 || resp.Locations[0] != "BTM" {
		t.Errorf("locations = %v", resp.Locations)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		report     health.Report
		wantStatus int
	}{
		{
			"healthy",
			health.Report{Status: health.Healthy, CorpusSize: 3, Checks: map[string]health.CheckResult{"corpus": health.CheckOK}},
			http.StatusOK,
		},
		{
			"degraded",
			health.Report{Status: health.Degraded, CorpusSize: 3, Checks: map[string]health.CheckResult{
				"corpus":     health.CheckOK,
				"generation": health.CheckError,
			}},
			http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&mockRecommender{}, staticLocations{}, staticHealth(tt.report), nil)
			rr := do(t, NewRouter(srv, nil, nil), http.MethodGet, "/health", "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.report.Status) || resp.CorpusSize != 3 {
				t.Errorf("resp = %+v", resp)
			}
			if len(resp.Checks) != len(tt.report.Checks) {
				t.Errorf("checks = %v", resp.Checks)
			}
		})
	}
}

func TestRouter_RequestIDAndNotFound(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{}), http.MethodGet, "/collections", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if resp := decodeError(t, rr); resp.Code != ErrorCodeNotFound {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestRouter_AuthRequired(t *testing.T) {
	h := newTestRouter(&mockRecommender{}, "secret")

	rr := do(t, h, http.MethodGet, "/locations", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("without token: status = %d, want 401", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("health is exempt: status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/locations", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(nopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorCodeInternalError {
		t.Errorf("code = %s", resp.Code)
	}
}
