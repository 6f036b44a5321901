/*
Launches the processes of a run within a slurm environment. To use, first
allocate nodes with salloc, and then call

	gompirunslurm ncores programname otherargs

For example,

	salloc -N6 -c12
	gompirunslurm 12 matmul -n 16 -mappers 3

Number of cores here is the number of cores per process (not the number of
processes). gompirunslurm uses srun to launch one process per allocated node.
If any of them fails, the others are terminated.
*/
package main

import (
	"log"
	"os"
	"os/exec"
	"strconv"

	"github.com/gompimr/matmul/mpirun"
)

const basePort = 5000

func main() {
	if len(os.Args) < 3 {
		log.Fatal("gompirunslurm must be called with the number of cores and the program name")
	}
	nCores, err := strconv.Atoi(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	if nCores < 1 {
		log.Fatal("Must have at least one core")
	}
	programName := os.Args[2]

	nodelist, err := mpirun.ExpandNodelist(os.Getenv("SLURM_JOB_NODELIST"))
	if err != nil {
		log.Fatal(err)
	}

	addrs := make([]string, len(nodelist))
	for i, node := range nodelist {
		addrs[i] = node + ":" + strconv.Itoa(basePort+i)
	}

	cmds := make([]*exec.Cmd, len(nodelist))
	for i, node := range nodelist {
		srunArgs := []string{"-N", "1", "-n", "1", "-c", strconv.Itoa(nCores), "--nodelist", node, programName}
		srunArgs = append(srunArgs, os.Args[3:]...)
		cmds[i] = mpirun.Command("srun", srunArgs, addrs[i], addrs)
	}
	if err := mpirun.RunGroup(cmds); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}
