package matmul

import (
	"errors"
	"math/rand"
	"testing"
)

func TestDrawReducers(t *testing.T) {
	for _, test := range []struct {
		size, mappers int
	}{
		{4, 2},
		{9, 7},
		{10, 3},
		{32, 1},
	} {
		for seed := int64(0); seed < 50; seed++ {
			set, err := DrawReducers(rand.New(rand.NewSource(seed)), test.size, test.mappers)
			if err != nil {
				t.Fatalf("size %d mappers %d seed %d: %v", test.size, test.mappers, seed, err)
			}
			if err := set.Validate(test.size, test.mappers); err != nil {
				t.Errorf("size %d mappers %d seed %d: drew %v: %v", test.size, test.mappers, seed, set, err)
			}
			if len(set) > test.size-test.mappers-1 {
				t.Errorf("drew %d reducers from %d candidates", len(set), test.size-test.mappers-1)
			}
		}
	}
}

func TestDrawReducersDeterministic(t *testing.T) {
	a, err := DrawReducers(rand.New(rand.NewSource(42)), 20, 4)
	if err != nil {
		t.Fatal(err)
	}
	b, err := DrawReducers(rand.New(rand.NewSource(42)), 20, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("same seed drew %v and %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed drew %v and %v", a, b)
		}
	}
}

func TestDrawReducersTooFewProcesses(t *testing.T) {
	for _, size := range []int{0, 1, 7, 8} {
		_, err := DrawReducers(rand.New(rand.NewSource(1)), size, 7)
		var cerr *ConfigurationError
		if !errors.As(err, &cerr) {
			t.Errorf("size %d with 7 mappers: got %v, want ConfigurationError", size, err)
		}
	}
}

func TestRoleOf(t *testing.T) {
	set := ReducerSet{4, 6}
	want := []Role{Coordinator, Mapper, Mapper, Idle, Reducer, Idle, Reducer}
	for rank, role := range want {
		if got := RoleOf(rank, 2, set); got != role {
			t.Errorf("RoleOf(%d) = %v, want %v", rank, got, role)
		}
	}
}

func TestReducerSetValidate(t *testing.T) {
	for _, test := range []struct {
		set ReducerSet
		ok  bool
	}{
		{ReducerSet{3}, true},
		{ReducerSet{3, 5, 7}, true},
		{nil, false},
		{ReducerSet{2}, false},
		{ReducerSet{8}, false},
		{ReducerSet{5, 3}, false},
		{ReducerSet{4, 4}, false},
	} {
		err := test.set.Validate(8, 2)
		if (err == nil) != test.ok {
			t.Errorf("%v.Validate(8, 2) = %v, want ok=%v", test.set, err, test.ok)
		}
	}
}
