package matmul

import (
	"fmt"
	"io"

	"github.com/gompimr/matmul/internal/logger"
)

const (
	DefaultMatrixSize = 16
	DefaultNumMappers = 7
	DefaultMatrixA    = "matrix_a.txt"
	DefaultMatrixB    = "matrix_b.txt"
)

// Semantics selects what a mapper emits for each source cell.
type Semantics string

const (
	// SemanticsProduct multiplies each A cell by the matching row of B, so
	// the reduced result is A×B.
	SemanticsProduct Semantics = "product"

	// SemanticsReference carries the A value forward unchanged to every
	// column of its row. The reduced cell (i, j) is then the sum of row i of
	// A, whatever B holds.
	SemanticsReference Semantics = "reference"
)

func (s Semantics) String() string { return string(s) }

func (s Semantics) valid() bool {
	return s == SemanticsProduct || s == SemanticsReference
}

// Set implements flag.Value.
func (s *Semantics) Set(value string) error {
	if Semantics(value).valid() {
		*s = Semantics(value)
		return nil
	}
	return fmt.Errorf("unknown semantics %q (want %q or %q)", value, SemanticsProduct, SemanticsReference)
}

// Config is the configuration of one run. Every process must use the same N,
// NumMappers and Semantics; Seed and the matrix paths are only read by the
// coordinator.
type Config struct {
	N          int   // matrix dimension
	NumMappers int   // ranks 1..NumMappers map
	Seed       int64 // seeds the reducer draw

	MatrixA string
	MatrixB string

	Semantics Semantics

	Out io.Writer      // coordinator writes the result here; nil discards it
	Log *logger.Logger // nil discards
}

// DefaultConfig returns the configuration of the classic 16×16, seven mapper
// job.
func DefaultConfig() Config {
	return Config{
		N:          DefaultMatrixSize,
		NumMappers: DefaultNumMappers,
		MatrixA:    DefaultMatrixA,
		MatrixB:    DefaultMatrixB,
		Semantics:  SemanticsProduct,
	}
}

// Validate checks the configuration against the number of processes taking
// part in the run.
func (c Config) Validate(size int) error {
	switch {
	case c.N < 1:
		return &ConfigurationError{Reason: fmt.Sprintf("matrix size %d must be positive", c.N)}
	case c.NumMappers < 1:
		return &ConfigurationError{Reason: fmt.Sprintf("mapper count %d must be positive", c.NumMappers)}
	case c.NumMappers > c.N:
		return &ConfigurationError{Reason: fmt.Sprintf("%d mappers for %d rows leaves a mapper without rows", c.NumMappers, c.N)}
	case size <= c.NumMappers+1:
		return tooFewProcesses(size, c.NumMappers)
	}
	if !c.Semantics.valid() {
		return &ConfigurationError{Reason: fmt.Sprintf("unknown semantics %q", c.Semantics)}
	}
	return nil
}

func tooFewProcesses(size, numMappers int) error {
	return &ConfigurationError{
		Reason: fmt.Sprintf("%d processes leave no room for a reducer with %d mappers (need at least %d)", size, numMappers, numMappers+2),
	}
}

func (c Config) logger() *logger.Logger {
	if c.Log == nil {
		return logger.Discard()
	}
	return c.Log
}
