// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every platepick metric name.
const Namespace = "platepick"

var registerOnce sync.Once

// Register adds every platepick collector to the default registry.
// Repeated calls are no-ops, so tests and the composition root may both call it.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(all()...)
	})
}

func all() []prometheus.Collector {
	var cs []prometheus.Collector
	cs = append(cs, httpRequestDuration, httpRequestsTotal, httpRequestsInFlight)
	cs = append(cs, embedding.collectors()...)
	cs = append(cs, generation.collectors()...)
	cs = append(cs, EmbeddingCacheTotal)
	cs = append(cs, RetrievalPathTotal, RetrievalResultSize, RetrievalDuration, FilterSelectivity)
	return cs
}
