package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the provider families.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ReasonAPIError      = "api_error"
	ReasonEmptyResponse = "empty_response"
)

// providerFamily is the collector set kept for one kind of model call.
type providerFamily struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

func newProviderFamily(kind, what string, buckets []float64) providerFamily {
	labels := []string{"provider", "model"}
	return providerFamily{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      kind + "_requests_total",
			Help:      "Total number of " + what + " requests",
		}, append(labels, "status")),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      kind + "_request_duration_seconds",
			Help:      "Successful " + what + " request duration in seconds",
			Buckets:   buckets,
		}, labels),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      kind + "_tokens_total",
			Help:      "Tokens consumed by " + what + " requests",
		}, append(labels, "type")),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      kind + "_errors_total",
			Help:      "Failed " + what + " requests by reason",
		}, append(labels, "error_type")),
	}
}

func (f providerFamily) collectors() []prometheus.Collector {
	return []prometheus.Collector{f.requests, f.duration, f.tokens, f.errors}
}

var (
	embedding = newProviderFamily("embedding", "embedding",
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
	generation = newProviderFamily("generation", "text generation",
		[]float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60})

	// EmbeddingCacheTotal counts query embedding cache lookups by result ("hit" / "miss").
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache hits and misses",
		},
		[]string{"result"},
	)
)

// Call tracks one outbound provider request from start to outcome.
type Call struct {
	family          providerFamily
	provider, model string
	start           time.Time
}

// StartEmbedding begins tracking an embedding request.
func StartEmbedding(provider, model string) *Call {
	return &Call{family: embedding, provider: provider, model: model, start: time.Now()}
}

// StartGeneration begins tracking a text generation request.
func StartGeneration(provider, model string) *Call {
	return &Call{family: generation, provider: provider, model: model, start: time.Now()}
}

// Elapsed is the time since the call started.
func (c *Call) Elapsed() time.Duration { return time.Since(c.start) }

// Fail records a failed request with the given reason.
func (c *Call) Fail(reason string) {
	c.family.requests.WithLabelValues(c.provider, c.model, StatusError).Inc()
	c.family.errors.WithLabelValues(c.provider, c.model, reason).Inc()
}

// Succeed records a successful request and its latency.
func (c *Call) Succeed() time.Duration {
	elapsed := c.Elapsed()
	c.family.requests.WithLabelValues(c.provider, c.model, StatusSuccess).Inc()
	c.family.duration.WithLabelValues(c.provider, c.model).Observe(elapsed.Seconds())
	return elapsed
}

// Tokens adds n tokens of the given kind ("prompt", "completion", "total").
// Non-positive counts are ignored; some providers do not report usage.
func (c *Call) Tokens(kind string, n int) {
	if n > 0 {
		c.family.tokens.WithLabelValues(c.provider, c.model, kind).Add(float64(n))
	}
}
