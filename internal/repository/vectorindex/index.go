package vectorindex

import (
	"github.com/kailas-cloud/platepick/internal/db"
	"github.com/kailas-cloud/platepick/internal/domain"
)

// Hash field names for one indexed restaurant.
const (
	fieldID       = "id"
	fieldName     = "name"
	fieldLocation = "location"
	fieldRating   = "rating"
	fieldPrice    = "price"
	fieldVector   = "vector"
)

// DefaultIndexName is used when New is given an empty name.
const DefaultIndexName = "platepick:restaurants"

func docPrefix(index string) string {
	return domain.KeyPrefix + "r:" + index + ":"
}

func metaKey(index string) string {
	return domain.KeyPrefix + "meta:" + index
}

// buildIndex describes the restaurant schema: attribute fields for FT pre-filters
// and an L2 vector field, so KNN distances are squared Euclidean like FlatIndex.
func buildIndex(name string, dim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	return db.NewIndex(name).
		Prefix(docPrefix(name)).
		Numeric(fieldID).
		Numeric(fieldRating).
		Numeric(fieldPrice).
		Tag(fieldLocation, "|").
		Vector(fieldVector, hnsw.Algorithm, dim, db.DistanceL2, hnsw.M, hnsw.EFConstruct).
		Build()
}
