package matmul

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// ReadMatrix reads an n×n matrix written row-major as whitespace separated
// numbers. Line breaks are not significant, but exactly n*n numbers must be
// present.
func ReadMatrix(r io.Reader, n int) (*mat.Dense, error) {
	if n < 1 {
		return nil, fmt.Errorf("matrix size %d must be positive", n)
	}
	data := make([]float64, 0, n*n)
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		if len(data) == n*n {
			return nil, fmt.Errorf("more than %d values", n*n)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d (row %d, column %d): %w", len(data), len(data)/n, len(data)%n, err)
		}
		data = append(data, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("got %d values, want %d", len(data), n*n)
	}
	return mat.NewDense(n, n, data), nil
}

// LoadMatrix reads an n×n matrix from a file. Every failure is an
// *InputError.
func LoadMatrix(path string, n int) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	defer f.Close()

	m, err := ReadMatrix(f, n)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	return m, nil
}

// WriteMatrix writes m one row per line, values formatted with verb and
// separated by single spaces.
func WriteMatrix(w io.Writer, m mat.Matrix, verb string) error {
	bw := bufio.NewWriter(w)
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if j > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, verb, m.At(i, j))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// SaveMatrix writes m to path in the format ReadMatrix reads.
func SaveMatrix(path string, m mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteMatrix(f, m, "%g"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RandomIntMatrix returns an n×n matrix of integers drawn uniformly from
// [1, 100].
func RandomIntMatrix(rng *rand.Rand, n int) *mat.Dense {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = float64(rng.Intn(100) + 1)
	}
	return mat.NewDense(n, n, data)
}
