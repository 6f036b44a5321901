package mpi

import (
	"fmt"
	"math/rand"
	"testing"
)

// Message lengths of the round trip benchmarks, in float64s.
var msgLengths = []int{1e0, 1e1, 1e2, 1e3, 1e4, 1e5}

func payload(n int) []float64 {
	rng := rand.New(rand.NewSource(1))
	p := make([]float64, n)
	for i := range p {
		p[i] = rng.Float64()
	}
	return p
}

// bounce sends msg from a to b and back, checking it survived.
func bounce(b *testing.B, a, c Mpi, msg []float64) {
	errc := make(chan error, 1)
	go func() {
		var rcv []float64
		if err := c.Receive(&rcv, a.Rank(), 0); err != nil {
			errc <- err
			return
		}
		errc <- SendSync(c, rcv, a.Rank(), 0)
	}()
	if err := SendSync(a, msg, c.Rank(), 0); err != nil {
		b.Fatal(err)
	}
	var back []float64
	if err := a.Receive(&back, c.Rank(), 0); err != nil {
		b.Fatal(err)
	}
	if err := <-errc; err != nil {
		b.Fatal(err)
	}
	if len(back) != len(msg) {
		b.Fatalf("message of %d came back with %d", len(msg), len(back))
	}
}

func BenchmarkLocalBounce(b *testing.B) {
	world := NewLocalWorld(2)
	for _, l := range msgLengths {
		msg := payload(l)
		b.Run(fmt.Sprint(l), func(b *testing.B) {
			b.SetBytes(int64(8 * l))
			for i := 0; i < b.N; i++ {
				bounce(b, world.Comm(0), world.Comm(1), msg)
			}
		})
	}
}

func BenchmarkNetworkBounce(b *testing.B) {
	nodes, errs := startNetwork(b, 2, func(int) string { return "" })
	for _, err := range errs {
		if err != nil {
			b.Fatal(err)
		}
	}
	defer func() {
		for _, n := range nodes {
			n.Finalize()
		}
	}()
	for _, l := range msgLengths {
		msg := payload(l)
		b.Run(fmt.Sprint(l), func(b *testing.B) {
			b.SetBytes(int64(8 * l))
			for i := 0; i < b.N; i++ {
				bounce(b, nodes[0], nodes[1], msg)
			}
		})
	}
}
