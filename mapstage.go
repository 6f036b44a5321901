package matmul

import "gonum.org/v1/gonum/mat"

// Map expands every entry (i, k, v) of the block into n entries (i, j, w), one
// for each output column j. Under SemanticsProduct w is v*B[k][j]; under
// SemanticsReference w is v and b is not read.
func Map(block RowBlock, b mat.Matrix, n int, sem Semantics) []Entry {
	out := make([]Entry, 0, len(block.Entries)*n)
	for _, e := range block.Entries {
		for j := 0; j < n; j++ {
			w := e.Value
			if sem == SemanticsProduct {
				w *= b.At(e.Col, j)
			}
			out = append(out, Entry{Row: e.Row, Col: j, Value: w})
		}
	}
	return out
}

// ReducerOf returns the index into the reducer set of the reducer owning
// output row.
func ReducerOf(row, n, reducers int) int {
	return row * reducers / n
}

// Shuffle splits map output by owning reducer. The i-th slice goes to the
// i-th reducer of the set; a reducer owning none of the rows gets an empty
// slice, so every reducer still hears from every mapper.
func Shuffle(entries []Entry, reducers, n int) [][]Entry {
	shares := make([][]Entry, reducers)
	for _, e := range entries {
		i := ReducerOf(e.Row, n, reducers)
		shares[i] = append(shares[i], e)
	}
	return shares
}
