package vectorindex

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/platepick/internal/corpus"
	"github.com/kailas-cloud/platepick/internal/db"
	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
)

func restaurantToHash(r *restaurant.Restaurant, vector []float32) map[string]string {
	return map[string]string{
		fieldID:       strconv.Itoa(r.ID),
		fieldName:     r.Name,
		fieldLocation: strings.ToLower(r.Location),
		fieldRating:   strconv.FormatFloat(r.Rating, 'f', -1, 64),
		fieldPrice:    strconv.Itoa(r.PriceForTwo),
		fieldVector:   rueidis.BinaryString(db.VectorToBytes(vector)),
	}
}

// meta describes the corpus an index was built from. sum pins content and
// order, so a same-sized but different corpus is not mistaken for the indexed one.
type meta struct {
	count int
	dim   int
	sum   string
}

func metaOf(c *corpus.Corpus) (meta, error) {
	sum, err := corpusSum(c)
	if err != nil {
		return meta{}, err
	}
	return meta{count: c.Len(), dim: c.Dimension(), sum: sum}, nil
}

// corpusSum hashes every indexed field and vector in ordinal id order.
func corpusSum(c *corpus.Corpus) (string, error) {
	h := sha256.New()
	var n [8]byte
	writeField := func(s string) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	for id := range c.Len() {
		vec, err := c.Vector(id)
		if err != nil {
			return "", fmt.Errorf("vector %d: %w", id, err)
		}
		r := c.At(id)
		binary.LittleEndian.PutUint64(n[:], uint64(id))
		h.Write(n[:])
		writeField(r.Name)
		writeField(r.Location)
		binary.LittleEndian.PutUint64(n[:], math.Float64bits(r.Rating))
		h.Write(n[:])
		binary.LittleEndian.PutUint64(n[:], uint64(r.PriceForTwo))
		h.Write(n[:])
		h.Write(db.VectorToBytes(vec))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (m meta) toHash() map[string]string {
	return map[string]string{
		"count": strconv.Itoa(m.count),
		"dim":   strconv.Itoa(m.dim),
		"sum":   m.sum,
	}
}

func metaFromHash(h map[string]string) (meta, bool) {
	count, err := strconv.Atoi(h["count"])
	if err != nil {
		return meta{}, false
	}
	dim, err := strconv.Atoi(h["dim"])
	if err != nil {
		return meta{}, false
	}
	sum := h["sum"]
	if sum == "" {
		return meta{}, false
	}
	return meta{count: count, dim: dim, sum: sum}, true
}

func entryID(e *db.SearchEntry) (int, error) {
	raw, ok := e.Fields[fieldID]
	if !ok {
		// The id is also the key suffix.
		i := strings.LastIndexByte(e.Key, ':')
		raw = e.Key[i+1:]
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse id of %s: %w", e.Key, err)
	}
	return id, nil
}
