package matmul

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomplete is returned when a fragment is requested before every
	// mapper's contributions have arrived.
	ErrIncomplete = errors.New("matmul: reduce incomplete")

	// ErrDuplicateBatch is returned when a mapper's contributions arrive twice.
	ErrDuplicateBatch = errors.New("matmul: duplicate batch")

	// ErrRunMismatch is returned when a message belongs to another run.
	ErrRunMismatch = errors.New("matmul: message from another run")
)

// ConfigurationError reports a topology or configuration that cannot run. It
// is detected before any role-dependent communication.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "matmul: configuration: " + e.Reason
}

// InputError reports a missing or malformed input matrix file.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("matmul: input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// TransportError reports a failed exchange with another rank during one phase
// of the run.
type TransportError struct {
	Phase string
	Peer  int
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("matmul: %s with rank %d: %v", e.Phase, e.Peer, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AbortError is returned by every rank when the coordinator called the run
// off before work was distributed.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string {
	return "matmul: run aborted by coordinator: " + e.Reason
}
