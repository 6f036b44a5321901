package matmul

import (
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/gompimr/matmul/mpi"
)

// Message tags. Each phase of a run uses its own tag.
const (
	tagPlan = iota + 1
	tagMatrixB
	tagBlock
	tagShare
	tagFragment
)

// Plan is broadcast by the coordinator before anything else. It is the only
// source of the reducer set, so every rank agrees on who reduces.
type Plan struct {
	RunID      uuid.UUID
	N          int
	NumMappers int
	Reducers   ReducerSet
	Semantics  Semantics

	// Abort is set instead of the fields above when the coordinator gives up
	// before distributing work.
	Abort string
}

type blockMsg struct {
	RunID uuid.UUID
	Block RowBlock
}

type shareMsg struct {
	RunID   uuid.UUID
	Mapper  int // rank
	Entries []Entry
}

type fragmentMsg struct {
	RunID   uuid.UUID
	Reducer int // rank
	Data    *mat.Dense
}

// check verifies a received plan against the local configuration.
func (p Plan) check(cfg Config, size int) error {
	if p.Abort != "" {
		return &AbortError{Reason: p.Abort}
	}
	if p.N != cfg.N || p.NumMappers != cfg.NumMappers {
		return &ConfigurationError{
			Reason: fmt.Sprintf("coordinator runs %d×%d with %d mappers, this process is configured for %d×%d with %d mappers",
				p.N, p.N, p.NumMappers, cfg.N, cfg.N, cfg.NumMappers),
		}
	}
	if !p.Semantics.valid() {
		return &ConfigurationError{Reason: fmt.Sprintf("unknown semantics %q in plan", p.Semantics)}
	}
	return p.Reducers.Validate(size, p.NumMappers)
}

func sendTo(comm mpi.Mpi, phase string, data interface{}, dst, tag int) error {
	if err := mpi.SendSync(comm, data, dst, tag); err != nil {
		return &TransportError{Phase: phase, Peer: dst, Err: err}
	}
	return nil
}

func receiveFrom(comm mpi.Mpi, phase string, data interface{}, src, tag int) error {
	if err := comm.Receive(data, src, tag); err != nil {
		return &TransportError{Phase: phase, Peer: src, Err: err}
	}
	return nil
}

func checkRun(phase string, peer int, want, got uuid.UUID) error {
	if want != got {
		return &TransportError{Phase: phase, Peer: peer, Err: fmt.Errorf("%w: %s", ErrRunMismatch, got)}
	}
	return nil
}
