package corpus

import (
	"fmt"
	"math"
)

// Vectors is a dense row-major embedding matrix. Row i belongs to restaurant i.
type Vectors struct {
	Dim  int
	Data []float32
}

// NewVectors packs equal-length rows into a matrix.
func NewVectors(rows [][]float32) (Vectors, error) {
	if len(rows) == 0 {
		return Vectors{}, nil
	}
	dim := len(rows[0])
	data := make([]float32, 0, dim*len(rows))
	for i, row := range rows {
		if len(row) != dim {
			return Vectors{}, fmt.Errorf("row %d has dimension %d, want %d", i, len(row), dim)
		}
		data = append(data, row...)
	}
	return Vectors{Dim: dim, Data: data}, nil
}

// Count returns the number of rows.
func (v Vectors) Count() int {
	if v.Dim <= 0 {
		return 0
	}
	return len(v.Data) / v.Dim
}

// Row returns a view of row i. The caller must not modify it.
func (v Vectors) Row(i int) []float32 {
	return v.Data[i*v.Dim : (i+1)*v.Dim : (i+1)*v.Dim]
}

func (v Vectors) check() error {
	if v.Dim <= 0 {
		return fmt.Errorf("vector dimension must be positive, got %d", v.Dim)
	}
	if len(v.Data)%v.Dim != 0 {
		return fmt.Errorf("vector data length %d is not a multiple of dimension %d", len(v.Data), v.Dim)
	}
	for i, f := range v.Data {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("vector %d has a non-finite component", i/v.Dim)
		}
	}
	return nil
}
