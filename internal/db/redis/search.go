package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/platepick/internal/db"
)

// SearchKNN runs a KNN query via FT.SEARCH.
// Entries come back ordered by ascending distance; Score holds the raw distance.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}

	args := []string{q.IndexName, q.Expr()}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(args, q.ReturnFields...)
		args = append(args, db.VectorScoreField)
	}
	// Without an explicit LIMIT the server caps replies at 10.
	args = append(args,
		"SORTBY", db.VectorScoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	reply, err := s.ftSearch(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseKNNReply(reply)
}

// SearchCount returns how many documents match query, fetching none of them.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	reply, err := s.ftSearch(ctx, []string{index, query, "LIMIT", "0", "0"})
	if err != nil {
		return 0, err
	}
	if len(reply) == 0 {
		return 0, nil
	}
	n, err := reply[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(n), nil
}

func (s *Store) ftSearch(ctx context.Context, args []string) ([]rueidis.RedisMessage, error) {
	reply, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	switch {
	case err == nil:
		return reply, nil
	case isUnknownIndex(err):
		return nil, db.ErrIndexNotFound
	default:
		return nil, &db.Error{Op: db.OpSearch, Key: args[0], Err: err}
	}
}

// parseKNNReply reads the RESP2 layout [total, key1, fields1, key2, fields2, ...].
// Malformed pairs are skipped.
func parseKNNReply(reply []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(reply) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := reply[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	res := &db.SearchResult{Total: int(total)}
	if total == 0 {
		return res, nil
	}
	res.Entries = make([]db.SearchEntry, 0, (len(reply)-1)/2)

	for pair := reply[1:]; len(pair) >= 2; pair = pair[2:] {
		key, err := pair[0].ToString()
		if err != nil {
			continue
		}
		kv, err := pair[1].AsStrSlice()
		if err != nil {
			continue
		}
		res.Entries = append(res.Entries, newEntry(key, kv))
	}
	return res, nil
}

// newEntry lifts the score pseudo-field out of the returned field list.
func newEntry(key string, kv []string) db.SearchEntry {
	e := db.SearchEntry{Key: key, Fields: make(map[string]string, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == db.VectorScoreField {
			if score, err := strconv.ParseFloat(kv[i+1], 64); err == nil {
				e.Score = score
			}
			continue
		}
		e.Fields[kv[i]] = kv[i+1]
	}
	return e
}

func vectorToBytes(v []float32) string {
	return rueidis.BinaryString(db.VectorToBytes(v))
}
