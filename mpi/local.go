package mpi

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
)

// LocalWorld is a set of ranks living in one process. Each rank gets its own
// Local through Comm and is expected to be driven by its own goroutine.
// Messages are still serialized with gob, so the receiver never shares memory
// with the sender.
type LocalWorld struct {
	size int

	mu    sync.Mutex
	boxes map[route]chan *packet
}

type route struct {
	src, dst, tag int
}

type packet struct {
	b    []byte
	done chan struct{}
}

// NewLocalWorld creates a world of size ranks.
func NewLocalWorld(size int) *LocalWorld {
	return &LocalWorld{
		size:  size,
		boxes: make(map[route]chan *packet),
	}
}

// Size returns the number of ranks in the world.
func (w *LocalWorld) Size() int { return w.size }

// Comm returns the endpoint for rank.
func (w *LocalWorld) Comm(rank int) *Local {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("mpi: rank %d outside world of size %d", rank, w.size))
	}
	return &Local{
		world:   w,
		rank:    rank,
		pending: make(map[route]chan struct{}),
	}
}

// box returns the queue of messages for a route. Queues are buffered so a send
// does not block until the matching receive; Wait provides the rendezvous.
func (w *LocalWorld) box(r route) chan *packet {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.boxes[r]
	if !ok {
		b = make(chan *packet, 64)
		w.boxes[r] = b
	}
	return b
}

// Local is the Mpi endpoint of one rank of a LocalWorld.
type Local struct {
	world *LocalWorld
	rank  int

	mu      sync.Mutex
	pending map[route]chan struct{}
}

// Init implements the Mpi function. The world is connected on creation.
func (l *Local) Init() error { return nil }

// Finalize implements the Mpi function.
func (l *Local) Finalize() {}

func (l *Local) Rank() int { return l.rank }

func (l *Local) Size() int { return l.world.size }

// Send implements the Mpi function.
func (l *Local) Send(data interface{}, destination, tag int) error {
	if err := checkRank(destination, l.world.size, "send"); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("mpi: encoding message for rank %d: %w", destination, err)
	}

	key := route{src: l.rank, dst: destination, tag: tag}
	p := &packet{b: buf.Bytes(), done: make(chan struct{})}

	l.mu.Lock()
	if _, ok := l.pending[key]; ok {
		l.mu.Unlock()
		return TagExists{Tag: tag}
	}
	l.pending[key] = p.done
	l.mu.Unlock()

	l.world.box(key) <- p
	return nil
}

// Wait implements the Mpi function.
func (l *Local) Wait(destination, tag int) error {
	key := route{src: l.rank, dst: destination, tag: tag}
	l.mu.Lock()
	done, ok := l.pending[key]
	l.mu.Unlock()
	if !ok {
		return &PeerError{Rank: destination, Op: "wait", Err: fmt.Errorf("no pending send with tag %d", tag)}
	}
	<-done
	l.mu.Lock()
	delete(l.pending, key)
	l.mu.Unlock()
	return nil
}

// Receive implements the Mpi function.
func (l *Local) Receive(data interface{}, source, tag int) error {
	if err := checkRank(source, l.world.size, "receive"); err != nil {
		return err
	}
	p := <-l.world.box(route{src: source, dst: l.rank, tag: tag})
	defer close(p.done)
	if err := gob.NewDecoder(bytes.NewReader(p.b)).Decode(data); err != nil {
		return fmt.Errorf("mpi: decoding message from rank %d: %w", source, err)
	}
	return nil
}
