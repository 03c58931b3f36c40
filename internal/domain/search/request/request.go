package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/domain/search/filter"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length in bytes.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 100
)

// Request is a validated recommendation or search query.
type Request struct {
	text     string
	criteria filter.Criteria
	topK     int
}

// New validates and normalizes query parameters.
// topK <= 0 selects DefaultTopK; values above MaxTopK are clamped.
// Every validation failure wraps domain.ErrInvalidRequest.
func New(text string, criteria filter.Criteria, topK int) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(text) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	return Request{text: text, criteria: criteria, topK: topK}, nil
}

// Parse builds criteria and request in one step from raw user parameters.
func Parse(text, location string, maxPrice *int, minRating float64, topK int) (Request, error) {
	crit, err := filter.NewCriteria(location, maxPrice, minRating)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return New(text, crit, topK)
}

// Text returns the free-text query.
func (r *Request) Text() string { return r.text }

// Criteria returns the hard attribute constraints.
func (r *Request) Criteria() filter.Criteria { return r.criteria }

// TopK returns the maximum number of results.
func (r *Request) TopK() int { return r.topK }
