// Package corpustest builds small valid corpora for tests.
package corpustest

import (
	"fmt"
	"testing"

	"github.com/kailas-cloud/platepick/internal/corpus"
	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
)

// Entry describes one restaurant and its embedding.
type Entry struct {
	Name     string
	Location string
	Cuisines string
	Rating   float64
	Price    int
	Vector   []float32
}

// Restaurant renders an entry into a record that passes restaurant.Validate.
func Restaurant(id int, e Entry) restaurant.Restaurant {
	cuisines := e.Cuisines
	if cuisines == "" {
		cuisines = "North Indian"
	}
	return restaurant.Restaurant{
		ID:          id,
		Name:        e.Name,
		Location:    e.Location,
		Type:        "Casual Dining",
		Cuisines:    cuisines,
		Rating:      e.Rating,
		PriceForTwo: e.Price,
		Evidence: fmt.Sprintf(
			"%s is a Casual Dining specializing in %s, located in %s. It has a rating of %.1f/5.0. "+
				"Approximate cost for two is %d.",
			e.Name, cuisines, e.Location, e.Rating, e.Price),
	}
}

// Records renders entries with ids assigned by position.
func Records(entries ...Entry) []restaurant.Restaurant {
	out := make([]restaurant.Restaurant, len(entries))
	for i, e := range entries {
		out[i] = Restaurant(i, e)
	}
	return out
}

// Matrix packs the entry vectors.
func Matrix(t testing.TB, entries ...Entry) corpus.Vectors {
	t.Helper()
	rows := make([][]float32, len(entries))
	for i, e := range entries {
		rows[i] = e.Vector
	}
	v, err := corpus.NewVectors(rows)
	if err != nil {
		t.Fatalf("corpustest: %v", err)
	}
	return v
}

// New builds a corpus from entries and fails the test on error.
func New(t testing.TB, entries ...Entry) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New(Records(entries...), Matrix(t, entries...))
	if err != nil {
		t.Fatalf("corpustest: %v", err)
	}
	return c
}

// Koramangala is the three-restaurant corpus used across retrieval tests.
// Only Alpha passes location "Koramangala" with max price 1000.
// Query vector {1, 0} is closest to Alpha; {0, 1} is closest to Beta.
func Koramangala() []Entry {
	return []Entry{
		{Name: "Alpha", Location: "Koramangala", Rating: 4.2, Price: 800, Vector: []float32{1, 0}},
		{Name: "Beta", Location: "Indiranagar", Rating: 3.8, Price: 300, Vector: []float32{0, 1}},
		{Name: "Gamma", Location: "Koramangala", Rating: 4.9, Price: 1200, Vector: []float32{0.7, 0.7}},
	}
}
