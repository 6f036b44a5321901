/*
gompirun launches the processes of a run on the local machine.

Running locally is mostly useful for debugging and prototyping; the ranks talk
over loopback TCP exactly as they would across machines.

gompirun takes the number of processes and the program to run. Any additional
arguments are passed to every process, followed by the -mpi-addr and
-mpi-alladdr flags. If any process fails, the others are terminated and
gompirun exits with status 1.

Instructions:

	go install github.com/gompimr/matmul/mpirun/gompirun
	gompirun 10 matmul -n 16 -mappers 7
*/
package main

import (
	"flag"
	"log"
	"os"
	"os/exec"
	"strconv"

	"github.com/gompimr/matmul/mpirun"
)

var basePort = flag.Int("port", 5000, "first local port; process i listens on port+i")

func main() {
	flag.Parse()
	if flag.NArg() < 2 {
		log.Fatal("usage: gompirun [-port p] nprocs program [args...]")
	}
	nNodes, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		log.Fatal("error parsing number of processes: ", err)
	}
	if nNodes < 1 {
		log.Fatal("number of processes must be positive")
	}

	addrs := mpirun.LocalAddrs(*basePort, nNodes)
	cmds := make([]*exec.Cmd, len(addrs))
	for i, addr := range addrs {
		cmds[i] = mpirun.Command(flag.Arg(1), flag.Args()[2:], addr, addrs)
	}
	if err := mpirun.RunGroup(cmds); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}
