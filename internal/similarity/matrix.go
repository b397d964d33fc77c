// Package similarity provides the precomputed pairwise similarity matrix.
package similarity

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Matrix is a square, row-major matrix of similarity scores. It is read-only after
// construction and safe for concurrent readers.
type Matrix struct {
	n    int
	data []float32
}

// New creates an n×n matrix backed by data (row-major, len(data) == n*n).
func New(n int, data []float32) (*Matrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("dimension must not be negative")
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("data length mismatch: got %d, expected %d", len(data), n*n)
	}
	return &Matrix{n: n, data: data}, nil
}

// FromRows builds a matrix from a slice of equal-length rows.
func FromRows(rows [][]float32) (*Matrix, error) {
	n := len(rows)
	data := make([]float32, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), n)
		}
		data = append(data, row...)
	}
	return New(n, data)
}

// Size returns the dimension N.
func (m *Matrix) Size() int {
	return m.n
}

// Row returns row i. The returned slice aliases the matrix and must not be modified.
func (m *Matrix) Row(i int) ([]float32, bool) {
	if i < 0 || i >= m.n {
		return nil, false
	}
	return m.data[i*m.n : (i+1)*m.n], true
}

// At returns the score at (i, j).
func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.n+j]
}

// Save persists the matrix to path. Directory is created if needed. Format: n (uint32),
// then n*n float32 values row-major, all little endian.
func (m *Matrix) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create matrix dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create matrix file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(m.n)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	for i := 0; i < m.n; i++ {
		row, _ := m.Row(i)
		if _, err := w.Write(float32SliceToBytes(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush matrix file: %w", err)
	}
	return nil
}

// MaxDimension bounds the dimension header so a corrupt or foreign file fails to load
// instead of allocating without limit.
const MaxDimension = 1 << 20

// Load reads a matrix written by Save. The file size must match its dimension header.
func Load(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat matrix file: %w", err)
	}
	r := bufio.NewReader(f)
	n, err := readDimension(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if want := 4 + 4*int64(n)*int64(n); info.Size() != want {
		return nil, fmt.Errorf("%s: file size %d does not match %dx%d matrix (%d bytes)", path, info.Size(), n, n, want)
	}
	return readRows(r, n)
}

// Read decodes a matrix from r.
func Read(r io.Reader) (*Matrix, error) {
	n, err := readDimension(r)
	if err != nil {
		return nil, err
	}
	return readRows(r, n)
}

func readDimension(r io.Reader) (int, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, fmt.Errorf("read dimension: %w", err)
	}
	if n > MaxDimension {
		return 0, fmt.Errorf("dimension %d exceeds limit %d; not a similarity matrix file?", n, MaxDimension)
	}
	return int(n), nil
}

// readRows grows the matrix row by row, so a truncated file fails before the full
// n*n buffer is allocated.
func readRows(r io.Reader, n int) (*Matrix, error) {
	data := make([]float32, 0, min(n*n, MaxDimension))
	buf := make([]byte, n*4)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read row %d: %w", i, err)
		}
		data = append(data, bytesToFloat32Slice(buf)...)
	}
	return New(n, data)
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
