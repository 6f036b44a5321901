package matmul

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Entry is one contribution to the output matrix at (Row, Col).
type Entry struct {
	Row, Col int
	Value    float64
}

// RowBlock is the contiguous run of rows of A handed to one mapper, as
// row-major entries.
type RowBlock struct {
	Mapper   int // 0-based mapper index; the mapper's rank is Mapper+1
	FirstRow int
	Rows     int
	Entries  []Entry
}

// RowRange returns the rows of mapper i (0-based) when n rows are split over
// numMappers mappers. Every mapper gets n/numMappers rows; the last one also
// takes the n%numMappers remainder rows.
func RowRange(n, numMappers, i int) (first, rows int) {
	per := n / numMappers
	first = i * per
	rows = per
	if i == numMappers-1 {
		rows = n - first
	}
	return first, rows
}

// Partition splits A into one RowBlock per mapper. Together the blocks cover
// every row of A exactly once.
func Partition(a mat.Matrix, numMappers int) ([]RowBlock, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("matmul: partition: matrix is %d×%d, not square", r, c)
	}
	n := r
	if numMappers < 1 || numMappers > n {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("cannot split %d rows over %d mappers", n, numMappers)}
	}

	blocks := make([]RowBlock, numMappers)
	for i := range blocks {
		first, rows := RowRange(n, numMappers, i)
		entries := make([]Entry, 0, rows*n)
		for row := first; row < first+rows; row++ {
			for col := 0; col < n; col++ {
				entries = append(entries, Entry{Row: row, Col: col, Value: a.At(row, col)})
			}
		}
		blocks[i] = RowBlock{Mapper: i, FirstRow: first, Rows: rows, Entries: entries}
	}
	return blocks, nil
}
