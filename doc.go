// Package matmul multiplies two dense N×N matrices across a fixed set of
// cooperating processes using a map/reduce pattern over point-to-point
// messages.
//
// Rank 0 is the coordinator. It loads both input matrices, draws the set of
// reducer ranks, broadcasts the run's Plan and matrix B, and hands each mapper
// a contiguous block of rows of A. Ranks 1 through NumMappers are mappers: each
// expands its rows into per-cell contributions and sends every reducer the
// contributions for the output rows that reducer owns. Reducers sum what they
// receive from every mapper and send the finished fragment back to the
// coordinator, which adds the fragments into the result and prints it. Ranks
// that are neither mapper nor reducer take no part after the broadcasts.
//
// Every process runs the same program and calls Run with its own endpoint of
// the transport in package mpi. All processes must be given the same Config;
// the Plan carries the topology so a mismatch is reported rather than
// deadlocking.
package matmul
