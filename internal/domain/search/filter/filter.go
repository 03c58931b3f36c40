package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
)

// AnyLocation is the sentinel value that disables the location constraint.
const AnyLocation = "any"

// Criteria is the set of hard attribute constraints applied before semantic ranking.
// The zero value matches every restaurant.
type Criteria struct {
	location  string // lower-cased, empty when unconstrained
	maxPrice  *int
	minRating float64
}

// NewCriteria validates and creates filter Criteria.
// A nil maxPrice means no price ceiling. "any" (any case) or blank location means no location constraint.
func NewCriteria(location string, maxPrice *int, minRating float64) (Criteria, error) {
	if maxPrice != nil && *maxPrice <= 0 {
		return Criteria{}, fmt.Errorf("max_price must be positive, got %d", *maxPrice)
	}
	if math.IsNaN(minRating) || minRating < 0 || minRating > restaurant.MaxRating {
		return Criteria{}, fmt.Errorf("min_rating must be between 0 and %.0f", restaurant.MaxRating)
	}

	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == AnyLocation {
		loc = ""
	}

	var mp *int
	if maxPrice != nil {
		v := *maxPrice
		mp = &v
	}
	return Criteria{location: loc, maxPrice: mp, minRating: minRating}, nil
}

// Location returns the normalized location needle ("" when unconstrained).
func (c Criteria) Location() string { return c.location }

// MaxPrice returns the price ceiling and whether one is set.
func (c Criteria) MaxPrice() (int, bool) {
	if c.maxPrice == nil {
		return 0, false
	}
	return *c.maxPrice, true
}

// MinRating returns the inclusive rating floor.
func (c Criteria) MinRating() float64 { return c.minRating }

// IsEmpty reports whether the criteria constrain nothing.
func (c Criteria) IsEmpty() bool {
	return c.location == "" && c.maxPrice == nil && c.minRating == 0
}

// Matches reports whether r satisfies every constraint.
// Unknown price (0) always passes the price ceiling.
func (c Criteria) Matches(r *restaurant.Restaurant) bool {
	if c.location != "" && !strings.Contains(strings.ToLower(r.Location), c.location) {
		return false
	}
	if c.maxPrice != nil && r.HasKnownPrice() && r.PriceForTwo > *c.maxPrice {
		return false
	}
	return r.Rating >= c.minRating
}
