// Package db abstracts the Redis/Valkey commands platepick relies on: a
// key-value cache for query embeddings and hash documents behind an FT vector
// index for the distributed ranker.
package db

import (
	"context"
	"time"
)

// Store is the single connection shared by the embedding cache and the vector index.
type Store interface {
	Pinger
	KVStore
	HashStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore holds opaque binary values, optionally with a TTL.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HashRecord is one hash key and its fields, written as part of a pipeline.
type HashRecord struct {
	Key    string
	Fields map[string]string
}

// HashStore reads and writes hash documents.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, records []HashRecord) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
}

// IndexManager creates and drops FT indexes.
// DropIndex with deleteDocs also removes every hash the index covered.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher queries FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
