package restaurant

import (
	"fmt"
	"strings"
)

// Attribute limits.
const (
	MaxRating = 5.0
	// MinEvidenceLength is the exclusive lower bound on evidence text length.
	MinEvidenceLength = 50
)

// Restaurant is one corpus entry's structured attributes.
// Its embedding lives in the corpus vector table at the same ordinal ID.
type Restaurant struct {
	ID          int
	Name        string
	Location    string
	Type        string // e.g. "Casual Dining"; optional
	Cuisines    string // free text, no set semantics
	Rating      float64
	PriceForTwo int // 0 means unknown
	Evidence    string
}

// HasKnownPrice reports whether PriceForTwo carries a real value.
func (r *Restaurant) HasKnownPrice() bool { return r.PriceForTwo > 0 }

// Validate checks the invariants the ingestion step promises.
// It is a load-time sanity check; nothing is re-derived.
func (r *Restaurant) Validate() error {
	if r.ID < 0 {
		return fmt.Errorf("restaurant id must be non-negative, got %d", r.ID)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("restaurant %d: name is required", r.ID)
	}
	if r.Rating < 0 || r.Rating > MaxRating {
		return fmt.Errorf("restaurant %d: rating %.2f out of range [0, %.1f]", r.ID, r.Rating, MaxRating)
	}
	if r.PriceForTwo < 0 {
		return fmt.Errorf("restaurant %d: price_for_two must be non-negative, got %d", r.ID, r.PriceForTwo)
	}
	if len(r.Evidence) <= MinEvidenceLength {
		return fmt.Errorf("restaurant %d: evidence text too short (%d chars, need more than %d)",
			r.ID, len(r.Evidence), MinEvidenceLength)
	}

	lower := strings.ToLower(r.Evidence)
	if !strings.Contains(lower, "rating") {
		return fmt.Errorf("restaurant %d: evidence text does not mention a rating", r.ID)
	}
	if !mentionsLocation(lower, r.Location) {
		return fmt.Errorf("restaurant %d: evidence text does not mention a location", r.ID)
	}
	return nil
}

func mentionsLocation(lowerEvidence, location string) bool {
	if strings.Contains(lowerEvidence, "located in") {
		return true
	}
	loc := strings.ToLower(strings.TrimSpace(location))
	return loc != "" && strings.Contains(lowerEvidence, loc)
}
