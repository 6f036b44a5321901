//go:build unix

package mpirun

import (
	"errors"
	"os/exec"
	"testing"
	"time"
)

func TestRunGroupSuccess(t *testing.T) {
	cmds := []*exec.Cmd{exec.Command("true"), exec.Command("true")}
	if err := RunGroup(cmds); err != nil {
		t.Fatal(err)
	}
}

func TestRunGroupTerminatesOnFailure(t *testing.T) {
	cmds := []*exec.Cmd{
		exec.Command("sleep", "30"),
		exec.Command("sh", "-c", "exit 3"),
		exec.Command("sleep", "30"),
	}
	start := time.Now()
	err := RunGroup(cmds)
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("group took %v; survivors not terminated", elapsed)
	}
	var perr *ProcessError
	if !errors.As(err, &perr) || perr.Index != 1 {
		t.Fatalf("got %v, want ProcessError for process 1", err)
	}
	var exit *exec.ExitError
	if !errors.As(err, &exit) || exit.ExitCode() != 3 {
		t.Errorf("got %v, want exit status 3", err)
	}
}
