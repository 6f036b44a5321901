// Package mpi implements the message passing layer the matrix multiplication
// processes talk over. It presents an mpi-like interface using only native go
// code. It does not follow the MPI standard exactly; where the package
// documentation disagrees with the standard, the package documentation is
// correct.
//
// A program is executed as a fixed set of processes. Init determines the size,
// the number of processes taking part in the run, and assigns each process a
// unique integer identifier, its "rank", with 0 <= rank < size. Processes then
// exchange data with Send, Wait and Receive. Every message is addressed by the
// {peer, tag} pair, and messages between one pair of processes are delivered in
// order.
//
// Two implementations are provided. Network connects every pair of processes
// over the net package and is the default. Local connects ranks living in the
// same process over channels and is used for tests and for single binary runs.
// A specific implementation may be registered during an init() function of
// package main.
//
// The package also adds several flags:
//
//	-mpi-addr : address of the local running process
//	-mpi-alladdr: comma separated list of the addresses of all the processes
//	-mpi-inittimeout: time.Duration for how long init can take before timing out.
//	-mpi-protocol: string to represent the protocol to use
//	-mpi-password: password to use at initialization
//
// flag.Parse() must be called in order to use these flags.
package mpi

import (
	"errors"
	"fmt"
)

var mpier Mpi = &Network{}

// ErrNotInitialized is returned by operations on an implementation that has not
// completed Init.
var ErrNotInitialized = errors.New("mpi: not initialized")

// Register sets an Mpi implementation to be used by the package level
// functions. Register should normally be called during program initialization
// and not again.
func Register(mpi Mpi) {
	mpier = mpi
}

// Default returns the registered implementation.
func Default() Mpi {
	return mpier
}

// Init initializes the communication network. Init must be called before any
// other functions are called, and should only be called once during program
// execution
func Init() error {
	return mpier.Init()
}

// Finalize cleans up the commication network. After a call to finalize, no more
// Mpi calls may be made (though programs are free to continue execution)
func Finalize() {
	mpier.Finalize()
}

// Rank returns the rank of the local process. The rank of each process is
// agreed upon by all processes and does not change during execution.
// 0 <= Rank() < Size(). If the network is not initialized, Rank returns -1.
func Rank() int {
	return mpier.Rank()
}

// Size returns the total number of processes. Size returns 0 if the network is
// not initialized.
func Size() int {
	return mpier.Size()
}

// Send transmits the data to the destination with the given tag. Send may be
// called concurrently between any number of goroutines, but {destination, tag}
// pairs must be unique among concurrent calls to send.
// Send blocks until the data has been handed to the connection (thus data is
// again free to be modified), but does not wait for confirmation of receipt.
// Wait may be used to do this. Once a call to Wait has completed, a
// {destination, tag} pair may be reused.
func Send(data interface{}, destination, tag int) error {
	return mpier.Send(data, destination, tag)
}

// Wait blocks until confirmation from destination that the data sent with the
// given tag has been received. Wait also frees the {destination, tag} pair for
// re-use.
func Wait(destination, tag int) error {
	return mpier.Wait(destination, tag)
}

// Receive reads the next message with the given tag from source and
// deserializes it into data. Data should be a pointer to the type given to
// Send. Receive returns when the data has been deserialized.
func Receive(data interface{}, source, tag int) error {
	return mpier.Receive(data, source, tag)
}

// Mpi is a set of routines for performing parallel computation. See the
// function descriptions for documentation.
type Mpi interface {
	Init() error
	Finalize()
	Rank() int
	Size() int
	Send(data interface{}, destination, tag int) error
	Wait(destination, tag int) error
	Receive(data interface{}, source, tag int) error
}

// SendSync sends data and blocks until the destination has received it. It is
// the blocking send the matrix protocol is written against.
func SendSync(comm Mpi, data interface{}, destination, tag int) error {
	if err := comm.Send(data, destination, tag); err != nil {
		return err
	}
	return comm.Wait(destination, tag)
}

// Bcast broadcasts data from root to every other rank. On root, data is sent;
// on every other rank, data must be a pointer and is filled with the value
// root sent. Bcast returns on root once every rank has received the value.
func Bcast(comm Mpi, data interface{}, root, tag int) error {
	if comm.Rank() != root {
		return comm.Receive(data, root, tag)
	}
	for dst := 0; dst < comm.Size(); dst++ {
		if dst == root {
			continue
		}
		if err := SendSync(comm, data, dst, tag); err != nil {
			return err
		}
	}
	return nil
}

// TagExists is an error type indicating the tag already has a concurrent request
// between the destination and source node
type TagExists struct {
	Tag int
}

func (t TagExists) Error() string {
	return fmt.Sprintf("Tag %v already in use sending", t.Tag)
}

// PeerError reports a failed exchange with another rank.
type PeerError struct {
	Rank int
	Op   string
	Err  error
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("mpi: %s with rank %d: %v", e.Op, e.Rank, e.Err)
}

func (e *PeerError) Unwrap() error { return e.Err }

func checkRank(rank, size int, op string) error {
	if size == 0 {
		return ErrNotInitialized
	}
	if rank < 0 || rank >= size {
		return &PeerError{Rank: rank, Op: op, Err: fmt.Errorf("rank out of range [0, %d)", size)}
	}
	return nil
}
