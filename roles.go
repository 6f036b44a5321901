package matmul

import (
	"fmt"
	"math/rand"
	"sort"
)

// Role is the part a rank plays in a run.
type Role int

const (
	Idle Role = iota
	Coordinator
	Mapper
	Reducer
)

func (r Role) String() string {
	switch r {
	case Idle:
		return "idle"
	case Coordinator:
		return "coordinator"
	case Mapper:
		return "mapper"
	case Reducer:
		return "reducer"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ReducerSet is the sorted, duplicate free list of reducer ranks of a run.
type ReducerSet []int

// Contains reports whether rank is a reducer.
func (s ReducerSet) Contains(rank int) bool {
	return s.Index(rank) >= 0
}

// Index returns the position of rank in the set, or -1.
func (s ReducerSet) Index(rank int) int {
	i := sort.SearchInts(s, rank)
	if i < len(s) && s[i] == rank {
		return i
	}
	return -1
}

// Validate checks the set against the topology it is used in.
func (s ReducerSet) Validate(size, numMappers int) error {
	if len(s) == 0 {
		return &ConfigurationError{Reason: "empty reducer set"}
	}
	for i, r := range s {
		if r <= numMappers || r >= size {
			return &ConfigurationError{Reason: fmt.Sprintf("reducer rank %d outside [%d, %d)", r, numMappers+1, size)}
		}
		if i > 0 && s[i-1] >= r {
			return &ConfigurationError{Reason: fmt.Sprintf("reducer set %v not sorted and unique", []int(s))}
		}
	}
	return nil
}

// DrawReducers picks the reducers of a run. It draws a count uniformly in
// [1, size-numMappers-1] and then that many ranks uniformly, with
// replacement, among the ranks above the mappers; repeated draws collapse.
// The draw is made once by the coordinator and shipped to every rank in the
// Plan.
func DrawReducers(rng *rand.Rand, size, numMappers int) (ReducerSet, error) {
	if numMappers < 1 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("mapper count %d must be positive", numMappers)}
	}
	if size <= numMappers+1 {
		return nil, tooFewProcesses(size, numMappers)
	}
	candidates := size - numMappers - 1
	count := rng.Intn(candidates) + 1

	seen := make(map[int]bool, count)
	set := make(ReducerSet, 0, count)
	for i := 0; i < count; i++ {
		r := numMappers + 1 + rng.Intn(candidates)
		if seen[r] {
			continue
		}
		seen[r] = true
		set = append(set, r)
	}
	sort.Ints(set)
	return set, nil
}

// RoleOf returns the role of rank given the mapper count and reducer set.
func RoleOf(rank, numMappers int, set ReducerSet) Role {
	switch {
	case rank == 0:
		return Coordinator
	case rank >= 1 && rank <= numMappers:
		return Mapper
	case set.Contains(rank):
		return Reducer
	}
	return Idle
}
