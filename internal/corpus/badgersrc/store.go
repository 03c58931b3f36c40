// Package badgersrc stores a corpus snapshot (attributes and vectors) in a badger database.
package badgersrc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/corpus"
	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
)

const (
	keyMeta          = "meta"
	restaurantPrefix = "r:"
	vectorPrefix     = "v:"
)

// ErrNoSnapshot signals a database without a written snapshot.
var ErrNoSnapshot = errors.New("no snapshot")

type meta struct {
	Count int `json:"count"`
	Dim   int `json:"dim"`
}

type restaurantDTO struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Type        string  `json:"rest_type,omitempty"`
	Cuisines    string  `json:"cuisines"`
	Rating      float64 `json:"rate_float"`
	PriceForTwo int     `json:"approx_cost_two"`
	Evidence    string  `json:"document_string"`
}

// Store is a corpus snapshot backed by badger. It implements both corpus sources.
type Store struct {
	db *badger.DB
}

var (
	_ corpus.AttributeSource = (*Store)(nil)
	_ corpus.VectorSource    = (*Store)(nil)
)

// Options controls how the snapshot database is opened.
type Options struct {
	Dir      string // ignored when InMemory
	InMemory bool
	ReadOnly bool
	Logger   *zap.Logger
}

// Open opens (or creates) a snapshot database.
func Open(o Options) (*Store, error) {
	var opts badger.Options
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(o.Dir).WithReadOnly(o.ReadOnly)
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opts.Logger = &zapBadgerLogger{log: log.Sugar().Named("badger")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Write replaces the snapshot contents with records and vectors.
func (s *Store) Write(records []restaurant.Restaurant, vectors corpus.Vectors) error {
	if vectors.Count() != len(records) {
		return fmt.Errorf("write snapshot: %d records but %d vectors", len(records), vectors.Count())
	}
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("write snapshot: clear: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range records {
		val, err := json.Marshal(toDTO(&records[i]))
		if err != nil {
			return fmt.Errorf("write snapshot: marshal %d: %w", i, err)
		}
		if err := wb.Set(key(restaurantPrefix, i), val); err != nil {
			return fmt.Errorf("write snapshot: restaurant %d: %w", i, err)
		}
		if err := wb.Set(key(vectorPrefix, i), encodeVector(vectors.Row(i))); err != nil {
			return fmt.Errorf("write snapshot: vector %d: %w", i, err)
		}
	}

	m, err := json.Marshal(meta{Count: len(records), Dim: vectors.Dim})
	if err != nil {
		return fmt.Errorf("write snapshot: marshal meta: %w", err)
	}
	if err := wb.Set([]byte(keyMeta), m); err != nil {
		return fmt.Errorf("write snapshot: meta: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("write snapshot: flush: %w", err)
	}
	return nil
}

// Restaurants reads every record in id order.
func (s *Store) Restaurants() ([]restaurant.Restaurant, error) {
	var out []restaurant.Restaurant
	err := s.db.View(func(txn *badger.Txn) error {
		m, err := readMeta(txn)
		if err != nil {
			return err
		}
		out = make([]restaurant.Restaurant, 0, m.Count)
		return scan(txn, restaurantPrefix, func(val []byte) error {
			var dto restaurantDTO
			if err := json.Unmarshal(val, &dto); err != nil {
				return fmt.Errorf("unmarshal restaurant: %w", err)
			}
			out = append(out, dto.toDomain())
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read restaurants: %w", err)
	}
	return out, nil
}

// Vectors reads the embedding matrix in id order.
func (s *Store) Vectors() (corpus.Vectors, error) {
	var out corpus.Vectors
	err := s.db.View(func(txn *badger.Txn) error {
		m, err := readMeta(txn)
		if err != nil {
			return err
		}
		out = corpus.Vectors{Dim: m.Dim, Data: make([]float32, 0, m.Count*m.Dim)}
		return scan(txn, vectorPrefix, func(val []byte) error {
			if len(val) != 4*m.Dim {
				return fmt.Errorf("vector has %d bytes, want %d", len(val), 4*m.Dim)
			}
			out.Data = appendVector(out.Data, val)
			return nil
		})
	})
	if err != nil {
		return corpus.Vectors{}, fmt.Errorf("read vectors: %w", err)
	}
	return out, nil
}

func readMeta(txn *badger.Txn) (meta, error) {
	item, err := txn.Get([]byte(keyMeta))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return meta{}, ErrNoSnapshot
	}
	if err != nil {
		return meta{}, err
	}
	var m meta
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	})
	return m, err
}

// scan visits values under prefix in key order; keys are big-endian ids so order matches ids.
func scan(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

func key(prefix string, id int) []byte {
	b := make([]byte, len(prefix)+8)
	copy(b, prefix)
	binary.BigEndian.PutUint64(b[len(prefix):], uint64(id)) //nolint:gosec // ids are non-negative
	return b
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func appendVector(dst []float32, b []byte) []float32 {
	for i := 0; i+4 <= len(b); i += 4 {
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(b[i:])))
	}
	return dst
}

func toDTO(r *restaurant.Restaurant) restaurantDTO {
	return restaurantDTO{
		ID:          r.ID,
		Name:        r.Name,
		Location:    r.Location,
		Type:        r.Type,
		Cuisines:    r.Cuisines,
		Rating:      r.Rating,
		PriceForTwo: r.PriceForTwo,
		Evidence:    r.Evidence,
	}
}

func (d restaurantDTO) toDomain() restaurant.Restaurant {
	return restaurant.Restaurant{
		ID:          d.ID,
		Name:        d.Name,
		Location:    d.Location,
		Type:        d.Type,
		Cuisines:    d.Cuisines,
		Rating:      d.Rating,
		PriceForTwo: d.PriceForTwo,
		Evidence:    d.Evidence,
	}
}
