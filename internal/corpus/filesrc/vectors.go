package filesrc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kailas-cloud/platepick/internal/corpus"
)

// Magic opens every vector file.
const Magic = "PPVEC1"

// maxElements bounds allocation for corrupt headers (16 GiB of float32).
const maxElements = 1 << 32

// VectorFile is a VectorSource backed by a binary vector file.
type VectorFile struct {
	Path string
}

// Vectors reads the whole file.
func (f VectorFile) Vectors() (corpus.Vectors, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return corpus.Vectors{}, fmt.Errorf("open vectors: %w", err)
	}
	defer func() { _ = fh.Close() }()
	return ReadVectors(bufio.NewReader(fh))
}

// ReadVectors decodes: magic, uint32 count, uint32 dim, then count*dim little-endian float32.
func ReadVectors(r io.Reader) (corpus.Vectors, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return corpus.Vectors{}, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != Magic {
		return corpus.Vectors{}, fmt.Errorf("bad magic %q", magic)
	}

	var hdr [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return corpus.Vectors{}, fmt.Errorf("read header: %w", err)
	}
	count, dim := int(hdr[0]), int(hdr[1])
	if dim == 0 {
		return corpus.Vectors{}, fmt.Errorf("dimension is zero")
	}
	if uint64(count)*uint64(dim) > maxElements {
		return corpus.Vectors{}, fmt.Errorf("header claims %d x %d vectors, too large", count, dim)
	}

	buf := make([]byte, 4*dim)
	data := make([]float32, 0, count*dim)
	for i := range count {
		if _, err := io.ReadFull(r, buf); err != nil {
			return corpus.Vectors{}, fmt.Errorf("read vector %d: %w", i, err)
		}
		for j := range dim {
			data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:])))
		}
	}

	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return corpus.Vectors{}, fmt.Errorf("trailing bytes after %d vectors", count)
	}
	return corpus.Vectors{Dim: dim, Data: data}, nil
}

// WriteVectors encodes v in the format ReadVectors expects.
func WriteVectors(w io.Writer, v corpus.Vectors) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	hdr := [2]uint32{uint32(v.Count()), uint32(v.Dim)} //nolint:gosec // bounded by maxElements on read
	if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	var b [4]byte
	for _, f := range v.Data {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		if _, err := bw.Write(b[:]); err != nil {
			return fmt.Errorf("write vectors: %w", err)
		}
	}
	return bw.Flush()
}
