package matmul

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/gompimr/matmul/internal/logger"
	"github.com/gompimr/matmul/mpi"
)

// Run executes the calling rank's part of one multiplication over comm. On the
// coordinator it returns the assembled result, after writing it to cfg.Out;
// every other rank returns a nil matrix. Any error ends the run for this rank.
func Run(comm mpi.Mpi, cfg Config) (*mat.Dense, error) {
	p, err := newProcess(comm, cfg)
	if err != nil {
		return nil, err
	}
	return p.run()
}

func newProcess(comm mpi.Mpi, cfg Config) (*process, error) {
	size := comm.Size()
	if err := cfg.Validate(size); err != nil {
		return nil, err
	}
	return &process{
		comm: comm,
		cfg:  cfg,
		log:  cfg.logger(),
		rank: comm.Rank(),
		size: size,
	}, nil
}

type process struct {
	comm mpi.Mpi
	cfg  Config
	log  *logger.Logger
	rank int
	size int

	plan Plan
	b    *mat.Dense
}

func (p *process) run() (*mat.Dense, error) {
	if p.rank == 0 {
		return p.coordinate()
	}
	return nil, p.work()
}

func (p *process) coordinate() (*mat.Dense, error) {
	p.log.Info("Master with process_id %d running on master", p.rank)

	rng := rand.New(rand.NewSource(p.cfg.Seed))
	reducers, err := DrawReducers(rng, p.size, p.cfg.NumMappers)
	if err != nil {
		return nil, err
	}
	runID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("matmul: run id: %w", err)
	}

	a, err := LoadMatrix(p.cfg.MatrixA, p.cfg.N)
	if err == nil {
		p.b, err = LoadMatrix(p.cfg.MatrixB, p.cfg.N)
	}
	if err != nil {
		p.log.Error("Aborting run: %v", err)
		if berr := mpi.Bcast(p.comm, Plan{Abort: err.Error()}, 0, tagPlan); berr != nil {
			p.log.Warn("Abort did not reach every rank: %v", berr)
		}
		return nil, err
	}

	p.plan = Plan{
		RunID:      runID,
		N:          p.cfg.N,
		NumMappers: p.cfg.NumMappers,
		Reducers:   reducers,
		Semantics:  p.cfg.Semantics,
	}
	p.log.Info("Run %s: %d mappers, reducers %v, semantics %s", runID, p.plan.NumMappers, []int(reducers), p.plan.Semantics)

	if err := mpi.Bcast(p.comm, p.plan, 0, tagPlan); err != nil {
		return nil, &TransportError{Phase: "plan broadcast", Peer: -1, Err: err}
	}
	if err := mpi.Bcast(p.comm, p.b, 0, tagMatrixB); err != nil {
		return nil, &TransportError{Phase: "matrix B broadcast", Peer: -1, Err: err}
	}

	blocks, err := Partition(a, p.cfg.NumMappers)
	if err != nil {
		return nil, err
	}
	for _, block := range blocks {
		dst := block.Mapper + 1
		p.log.Debug("Sending rows [%d, %d) to mapper %d", block.FirstRow, block.FirstRow+block.Rows, dst)
		if err := sendTo(p.comm, "row block", blockMsg{RunID: runID, Block: block}, dst, tagBlock); err != nil {
			return nil, err
		}
	}

	result := mat.NewDense(p.cfg.N, p.cfg.N, nil)
	for _, r := range reducers {
		var msg fragmentMsg
		if err := receiveFrom(p.comm, "fragment", &msg, r, tagFragment); err != nil {
			return nil, err
		}
		if err := checkRun("fragment", r, runID, msg.RunID); err != nil {
			return nil, err
		}
		if msg.Data == nil {
			return nil, &TransportError{Phase: "fragment", Peer: r, Err: fmt.Errorf("empty fragment")}
		}
		if rr, cc := msg.Data.Dims(); msg.Reducer != r || rr != p.cfg.N || cc != p.cfg.N {
			return nil, &TransportError{Phase: "fragment", Peer: r, Err: fmt.Errorf("fragment %d×%d from rank %d", rr, cc, msg.Reducer)}
		}
		result.Add(result, msg.Data)
		p.log.Debug("Fragment from reducer %d received", r)
	}

	if err := p.print(result); err != nil {
		return nil, fmt.Errorf("matmul: writing result: %w", err)
	}
	p.log.Info("Job has been completed")
	return result, nil
}

func (p *process) print(result *mat.Dense) error {
	if p.cfg.Out == nil {
		return nil
	}
	if _, err := io.WriteString(p.cfg.Out, "Result:\n"); err != nil {
		return err
	}
	if err := WriteMatrix(p.cfg.Out, result, "%f"); err != nil {
		return err
	}
	_, err := io.WriteString(p.cfg.Out, "Job has been completed\n")
	return err
}

// work runs a non-coordinator rank: it learns the plan and B, then plays the
// role the plan gives it.
func (p *process) work() error {
	if err := receiveFrom(p.comm, "plan", &p.plan, 0, tagPlan); err != nil {
		return err
	}
	if err := p.plan.check(p.cfg, p.size); err != nil {
		return err
	}
	var b mat.Dense
	if err := receiveFrom(p.comm, "matrix B", &b, 0, tagMatrixB); err != nil {
		return err
	}
	p.b = &b

	role := RoleOf(p.rank, p.plan.NumMappers, p.plan.Reducers)
	p.log.Debug("Run %s: rank %d is %s", p.plan.RunID, p.rank, role)
	switch role {
	case Mapper:
		return p.mapTask()
	case Reducer:
		return p.reduceTask()
	}
	return nil
}

func (p *process) mapTask() error {
	p.log.Info("Task map assigned to process %d", p.rank)

	var msg blockMsg
	if err := receiveFrom(p.comm, "row block", &msg, 0, tagBlock); err != nil {
		return err
	}
	if err := checkRun("row block", 0, p.plan.RunID, msg.RunID); err != nil {
		return err
	}
	if msg.Block.Mapper+1 != p.rank {
		return &TransportError{Phase: "row block", Peer: 0, Err: fmt.Errorf("block for mapper %d delivered to rank %d", msg.Block.Mapper+1, p.rank)}
	}

	out := Map(msg.Block, p.b, p.plan.N, p.plan.Semantics)
	p.log.Info("Process %d received task map", p.rank)

	shares := Shuffle(out, len(p.plan.Reducers), p.plan.N)
	for i, r := range p.plan.Reducers {
		share := shareMsg{RunID: p.plan.RunID, Mapper: p.rank, Entries: shares[i]}
		if err := sendTo(p.comm, "map output", share, r, tagShare); err != nil {
			return err
		}
		p.log.Debug("Sent %d entries to reducer %d", len(shares[i]), r)
	}
	p.log.Info("Process %d has completed task map", p.rank)
	return nil
}

func (p *process) reduceTask() error {
	p.log.Info("Task reduce assigned to process %d", p.rank)

	acc := NewAccumulator(p.plan.N, p.plan.NumMappers)
	for m := 1; m <= p.plan.NumMappers; m++ {
		var msg shareMsg
		if err := receiveFrom(p.comm, "map output", &msg, m, tagShare); err != nil {
			return err
		}
		if err := checkRun("map output", m, p.plan.RunID, msg.RunID); err != nil {
			return err
		}
		if msg.Mapper != m {
			return &TransportError{Phase: "map output", Peer: m, Err: fmt.Errorf("share labelled as mapper %d", msg.Mapper)}
		}
		if err := acc.Add(m, msg.Entries); err != nil {
			return err
		}
		p.log.Debug("Received %d entries from mapper %d (%d of %d)", len(msg.Entries), m, acc.Received(), p.plan.NumMappers)
	}
	p.log.Info("Process %d received task Reduce", p.rank)

	frag, err := acc.Fragment()
	if err != nil {
		return err
	}
	msg := fragmentMsg{RunID: p.plan.RunID, Reducer: p.rank, Data: frag}
	if err := sendTo(p.comm, "fragment", msg, 0, tagFragment); err != nil {
		return err
	}
	p.log.Info("Process %d has completed task Reduce", p.rank)
	return nil
}
