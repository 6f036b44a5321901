package mpi

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLocalSendReceive(t *testing.T) {
	world := NewLocalWorld(2)
	a, b := world.Comm(0), world.Comm(1)

	data := []float64{1, 2, 3}
	if err := a.Send(data, 1, 7); err != nil {
		t.Fatal(err)
	}
	// The receiver gets a copy of the value at Send time.
	data[0] = 100

	waited := make(chan error, 1)
	go func() { waited <- a.Wait(1, 7) }()
	select {
	case err := <-waited:
		t.Fatalf("Wait returned before Receive: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	var got []float64
	if err := b.Receive(&got, 0, 7); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("received %v", got)
	}
	if err := <-waited; err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestLocalTagExists(t *testing.T) {
	world := NewLocalWorld(2)
	a := world.Comm(0)
	if err := a.Send(1, 1, 3); err != nil {
		t.Fatal(err)
	}
	err := a.Send(2, 1, 3)
	var te TagExists
	if !errors.As(err, &te) || te.Tag != 3 {
		t.Fatalf("second send on a busy tag: got %v, want TagExists", err)
	}
	// A different tag to the same destination is fine.
	if err := a.Send(2, 1, 4); err != nil {
		t.Fatal(err)
	}
}

func TestLocalOrderPerTag(t *testing.T) {
	world := NewLocalWorld(2)
	a, b := world.Comm(0), world.Comm(1)
	go func() {
		for i := 0; i < 10; i++ {
			if err := SendSync(a, i, 1, 0); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	for i := 0; i < 10; i++ {
		var got int
		if err := b.Receive(&got, 0, 0); err != nil {
			t.Fatal(err)
		}
		if got != i {
			t.Fatalf("message %d carried %d", i, got)
		}
	}
}

func TestLocalBadRank(t *testing.T) {
	world := NewLocalWorld(2)
	var perr *PeerError
	if err := world.Comm(0).Send(1, 2, 0); !errors.As(err, &perr) || perr.Rank != 2 {
		t.Errorf("send to rank 2 of 2: got %v, want PeerError", err)
	}
	if err := world.Comm(0).Wait(1, 0); !errors.As(err, &perr) {
		t.Errorf("wait without send: got %v, want PeerError", err)
	}
}

func TestBcastLocal(t *testing.T) {
	type plan struct {
		Name  string
		Ranks []int
	}
	const size = 5
	world := NewLocalWorld(size)
	got := make([]plan, size)
	errs := make([]error, size)
	var wg sync.WaitGroup
	for rank := 0; rank < size; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			comm := world.Comm(rank)
			if rank == 2 {
				got[rank] = plan{Name: "root", Ranks: []int{3, 4}}
				errs[rank] = Bcast(comm, got[rank], 2, 9)
				return
			}
			errs[rank] = Bcast(comm, &got[rank], 2, 9)
		}(rank)
	}
	wg.Wait()
	for rank := range got {
		if errs[rank] != nil {
			t.Errorf("rank %d: %v", rank, errs[rank])
		}
		if fmt.Sprint(got[rank]) != fmt.Sprint(got[2]) {
			t.Errorf("rank %d has %v, root sent %v", rank, got[rank], got[2])
		}
	}
}
