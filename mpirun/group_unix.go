//go:build unix

package mpirun

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// isolate puts the process in its own process group so that terminating it
// also reaches anything it started, such as the remote tasks of srun.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// The group may already be gone.
	unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
}
