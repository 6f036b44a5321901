package matmul

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Accumulator is the output fragment a reducer builds. It expects exactly one
// batch of entries from each of a known number of mappers and only hands out
// the fragment once all of them arrived. Summation is order independent, so
// batches may be added in any order.
type Accumulator struct {
	n        int
	expected int
	seen     map[int]bool
	frag     *mat.Dense
}

// NewAccumulator returns an empty n×n fragment waiting for expected batches.
func NewAccumulator(n, expected int) *Accumulator {
	return &Accumulator{
		n:        n,
		expected: expected,
		seen:     make(map[int]bool, expected),
		frag:     mat.NewDense(n, n, nil),
	}
}

// Add sums a mapper's batch into the fragment. Nothing is added if any entry
// lies outside the grid.
func (a *Accumulator) Add(mapper int, entries []Entry) error {
	if a.seen[mapper] {
		return fmt.Errorf("%w: mapper %d", ErrDuplicateBatch, mapper)
	}
	if len(a.seen) == a.expected {
		return fmt.Errorf("matmul: batch from mapper %d after all %d arrived", mapper, a.expected)
	}
	for _, e := range entries {
		if e.Row < 0 || e.Row >= a.n || e.Col < 0 || e.Col >= a.n {
			return fmt.Errorf("matmul: entry (%d, %d) from mapper %d outside %d×%d grid", e.Row, e.Col, mapper, a.n, a.n)
		}
	}
	for _, e := range entries {
		a.frag.Set(e.Row, e.Col, a.frag.At(e.Row, e.Col)+e.Value)
	}
	a.seen[mapper] = true
	return nil
}

// Received returns the number of batches added so far.
func (a *Accumulator) Received() int { return len(a.seen) }

// Complete reports whether every expected batch arrived.
func (a *Accumulator) Complete() bool { return len(a.seen) == a.expected }

// Fragment returns the finished fragment, or ErrIncomplete while batches are
// outstanding.
func (a *Accumulator) Fragment() (*mat.Dense, error) {
	if !a.Complete() {
		return nil, fmt.Errorf("%w: %d of %d batches", ErrIncomplete, len(a.seen), a.expected)
	}
	return a.frag, nil
}
