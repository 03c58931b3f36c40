package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval Prometheus metrics.
var (
	RetrievalPathTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_path_total",
			Help:      "Retrievals by the path that produced the result",
		},
		[]string{"path"}, // unfiltered / filtered / fallback / empty
	)

	RetrievalResultSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_result_size",
			Help:      "Number of restaurants returned per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
		},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval latency in seconds, encoder call included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"path"},
	)

	FilterSelectivity = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_filter_selectivity_ratio",
			Help:      "Fraction of the corpus that passed the attribute filter",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

// ObserveRetrieval records one finished retrieval.
func ObserveRetrieval(path string, size int, elapsed time.Duration) {
	RetrievalPathTotal.WithLabelValues(path).Inc()
	RetrievalResultSize.Observe(float64(size))
	RetrievalDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}
