package db

import (
	"errors"
	"fmt"
)

// VectorScoreField is the pseudo-field FT.SEARCH uses for KNN distances.
const VectorScoreField = "__vector_score"

// DefaultVectorField is used when a KNNQuery leaves VectorField empty.
const DefaultVectorField = "vector"

// KNNQuery asks for the K nearest documents to Vector.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Vector       []float32
	K            int
	ReturnFields []string // nil returns every field
}

// Validate rejects queries the server would refuse or misread.
func (q *KNNQuery) Validate() error {
	switch {
	case q.IndexName == "":
		return errors.New("index name is required")
	case len(q.Vector) == 0:
		return errors.New("vector is required")
	case q.K <= 0:
		return fmt.Errorf("k must be positive, got %d", q.K)
	}
	return nil
}

// Expr is the DIALECT 2 query expression, with the vector bound to $BLOB.
func (q *KNNQuery) Expr() string {
	field := q.VectorField
	if field == "" {
		field = DefaultVectorField
	}
	return fmt.Sprintf("*=>[KNN %d @%s $BLOB]", q.K, field)
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit.
// Score is the raw distance reported by the index for KNN queries.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
