package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the corpus is unavailable; no request can be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentCorpus     = "corpus"
	ComponentStore      = "store"
	ComponentEmbedding  = "embedding"
	ComponentGeneration = "generation"
)

// Report aggregates health check results.
type Report struct {
	Status     Status
	CorpusSize int
	Checks     map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	corpus     CorpusInfo
	store      Pinger
	embedding  Checker
	generation Checker
}

// New creates a Service. store, embedding and generation can be nil.
func New(corpus CorpusInfo, store Pinger, embedding, generation Checker) *Service {
	return &Service{corpus: corpus, store: store, embedding: embedding, generation: generation}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	size := 0
	if s.corpus != nil {
		size = s.corpus.Len()
	}
	checks[ComponentCorpus] = result(size > 0)

	if s.store != nil {
		checks[ComponentStore] = result(s.store.Ping(ctx) == nil)
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx) == nil)
	}
	if s.generation != nil {
		checks[ComponentGeneration] = result(s.generation.HealthCheck(ctx) == nil)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentCorpus] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, CorpusSize: size, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
