package corpus

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
)

// AttributeSource yields the attribute table ordered by ordinal id.
type AttributeSource interface {
	Restaurants() ([]restaurant.Restaurant, error)
}

// VectorSource yields the embedding matrix aligned with the attribute table.
type VectorSource interface {
	Vectors() (Vectors, error)
}

// Corpus is the immutable, in-memory restaurant table with its embeddings.
// It is safe for concurrent readers once Load returns.
type Corpus struct {
	records   []restaurant.Restaurant
	vectors   Vectors
	locations []string
}

// Load reads both sources and checks that they describe the same corpus.
// Every failure wraps domain.ErrCorpusLoad.
func Load(attrs AttributeSource, vecs VectorSource) (*Corpus, error) {
	records, err := attrs.Restaurants()
	if err != nil {
		return nil, fmt.Errorf("%w: read attributes: %w", domain.ErrCorpusLoad, err)
	}
	vectors, err := vecs.Vectors()
	if err != nil {
		return nil, fmt.Errorf("%w: read vectors: %w", domain.ErrCorpusLoad, err)
	}
	return New(records, vectors)
}

// New validates records and vectors and assembles a Corpus.
// Records must be ordered so that records[i].ID == i.
func New(records []restaurant.Restaurant, vectors Vectors) (*Corpus, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: corpus is empty", domain.ErrCorpusLoad)
	}
	if err := vectors.check(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorpusLoad, err)
	}
	if n := vectors.Count(); n != len(records) {
		return nil, fmt.Errorf("%w: %d attribute rows but %d vectors", domain.ErrCorpusLoad, len(records), n)
	}

	seen := make(map[string]struct{})
	var locations []string
	for i := range records {
		r := &records[i]
		if r.ID != i {
			return nil, fmt.Errorf("%w: row %d carries id %d", domain.ErrCorpusLoad, i, r.ID)
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCorpusLoad, err)
		}
		loc := strings.TrimSpace(r.Location)
		if loc == "" {
			continue
		}
		if _, ok := seen[loc]; !ok {
			seen[loc] = struct{}{}
			locations = append(locations, loc)
		}
	}
	sort.Strings(locations)

	return &Corpus{
		records:   slices.Clone(records),
		vectors:   Vectors{Dim: vectors.Dim, Data: slices.Clone(vectors.Data)},
		locations: locations,
	}, nil
}

// Len returns the number of restaurants.
func (c *Corpus) Len() int { return len(c.records) }

// Dimension returns the embedding dimension.
func (c *Corpus) Dimension() int { return c.vectors.Dim }

// Get returns the restaurant with the given ordinal id.
func (c *Corpus) Get(id int) (restaurant.Restaurant, error) {
	if id < 0 || id >= len(c.records) {
		return restaurant.Restaurant{}, fmt.Errorf("restaurant %d: %w", id, domain.ErrNotFound)
	}
	return c.records[id], nil
}

// At returns a pointer into the table for hot loops. The caller must not modify it.
func (c *Corpus) At(id int) *restaurant.Restaurant { return &c.records[id] }

// All returns a copy of the records ordered by id.
func (c *Corpus) All() []restaurant.Restaurant { return slices.Clone(c.records) }

// Vector returns a copy of the embedding for id.
func (c *Corpus) Vector(id int) ([]float32, error) {
	if id < 0 || id >= len(c.records) {
		return nil, fmt.Errorf("vector %d: %w", id, domain.ErrNotFound)
	}
	return slices.Clone(c.vectors.Row(id)), nil
}

// Matrix exposes the shared embedding matrix to index builders. It must be treated as read-only.
func (c *Corpus) Matrix() Vectors { return c.vectors }

// Locations returns the sorted distinct location names.
func (c *Corpus) Locations() []string { return slices.Clone(c.locations) }
