// Package filesrc reads and writes the on-disk corpus artifacts produced by the offline build step.
package filesrc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
)

// Attribute table columns.
const (
	ColID       = "id"
	ColName     = "name"
	ColLocation = "location"
	ColType     = "rest_type"
	ColCuisines = "cuisines"
	ColRating   = "rate_float"
	ColPrice    = "approx_cost_two"
	ColEvidence = "document_string"
)

// Header is the column order written by WriteAttributes.
var Header = []string{ColID, ColName, ColLocation, ColType, ColCuisines, ColRating, ColPrice, ColEvidence}

var requiredColumns = []string{ColName, ColLocation, ColRating, ColPrice, ColEvidence}

// AttributeFile is an AttributeSource backed by a CSV file.
type AttributeFile struct {
	Path string
}

// Restaurants reads and parses the whole file.
func (f AttributeFile) Restaurants() ([]restaurant.Restaurant, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open attributes: %w", err)
	}
	defer func() { _ = fh.Close() }()
	return ReadAttributes(fh)
}

// ReadAttributes parses a CSV attribute table. Columns are matched by header name.
// Without an id column, ids are assigned by row order.
func ReadAttributes(r io.Reader) ([]restaurant.Restaurant, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("attribute table is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var out []restaurant.Restaurant
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		r, err := parseRow(rec, cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseRow(rec []string, cols map[string]int, row int) (restaurant.Restaurant, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	id := row
	if raw := field(ColID); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return restaurant.Restaurant{}, fmt.Errorf("parse %s %q: %w", ColID, raw, err)
		}
		id = v
	}

	rating, err := strconv.ParseFloat(field(ColRating), 64)
	if err != nil {
		return restaurant.Restaurant{}, fmt.Errorf("parse %s: %w", ColRating, err)
	}
	price, err := parsePrice(field(ColPrice))
	if err != nil {
		return restaurant.Restaurant{}, fmt.Errorf("parse %s: %w", ColPrice, err)
	}

	return restaurant.Restaurant{
		ID:          id,
		Name:        field(ColName),
		Location:    field(ColLocation),
		Type:        field(ColType),
		Cuisines:    field(ColCuisines),
		Rating:      rating,
		PriceForTwo: price,
		Evidence:    field(ColEvidence),
	}, nil
}

// parsePrice accepts "800", "800.0" and "1,200". Blank means unknown.
func parsePrice(raw string) (int, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// WriteAttributes writes records as CSV with Header.
func WriteAttributes(w io.Writer, records []restaurant.Restaurant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.ID),
			r.Name,
			r.Location,
			r.Type,
			r.Cuisines,
			strconv.FormatFloat(r.Rating, 'f', -1, 64),
			strconv.Itoa(r.PriceForTwo),
			r.Evidence,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
