package health

import "context"

// CorpusInfo reports how many restaurants are loaded.
type CorpusInfo interface {
	Len() int
}

// Pinger checks store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker checks provider availability.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
