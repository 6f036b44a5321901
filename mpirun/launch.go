// Package mpirun starts the processes of a run. Each process is handed the
// transport flags -mpi-addr and -mpi-alladdr; when any process fails, the
// remaining ones are terminated so no rank is left blocked on a peer that is
// gone.
package mpirun

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// LocalAddrs returns n addresses on consecutive local ports starting at base.
func LocalAddrs(base, n int) []string {
	addrs := make([]string, n)
	for i := range addrs {
		addrs[i] = ":" + strconv.Itoa(base+i)
	}
	return addrs
}

// Command builds the command for the process listening on addr. args are
// passed through, followed by the transport flags.
func Command(name string, args []string, addr string, all []string) *exec.Cmd {
	a := append([]string(nil), args...)
	a = append(a, "-mpi-addr", addr, "-mpi-alladdr", strings.Join(all, ","))
	cmd := exec.Command(name, a...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// ProcessError reports the failure of one launched process.
type ProcessError struct {
	Index int
	Addr  string
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process %d (%s): %v", e.Index, e.Addr, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// RunGroup starts every command and waits for all of them. The first failure
// terminates the others; its error is returned.
func RunGroup(cmds []*exec.Cmd) error {
	for i, cmd := range cmds {
		isolate(cmd)
		if err := cmd.Start(); err != nil {
			for _, started := range cmds[:i] {
				terminate(started)
				started.Wait()
			}
			return &ProcessError{Index: i, Addr: addrOf(cmd), Err: err}
		}
	}

	type exit struct {
		i   int
		err error
	}
	exits := make(chan exit, len(cmds))
	for i, cmd := range cmds {
		go func(i int, cmd *exec.Cmd) {
			exits <- exit{i, cmd.Wait()}
		}(i, cmd)
	}

	var first error
	done := make([]bool, len(cmds))
	for range cmds {
		e := <-exits
		done[e.i] = true
		if e.err == nil || first != nil {
			continue
		}
		first = &ProcessError{Index: e.i, Addr: addrOf(cmds[e.i]), Err: e.err}
		for j, cmd := range cmds {
			if !done[j] {
				terminate(cmd)
			}
		}
	}
	return first
}

func addrOf(cmd *exec.Cmd) string {
	for i, a := range cmd.Args {
		if a == "-mpi-addr" && i+1 < len(cmd.Args) {
			return cmd.Args[i+1]
		}
	}
	return cmd.Path
}

// ExpandNodelist expands a slurm node list such as "cn[01-03,7],gpu1" into
// host names. Zero padding of range bounds is kept.
func ExpandNodelist(list string) ([]string, error) {
	var nodes []string
	for _, item := range splitTop(list) {
		open := strings.IndexByte(item, '[')
		if open < 0 {
			nodes = append(nodes, item)
			continue
		}
		if !strings.HasSuffix(item, "]") {
			return nil, fmt.Errorf("nodelist %q: unterminated range in %q", list, item)
		}
		root := item[:open]
		for _, sweep := range strings.Split(item[open+1:len(item)-1], ",") {
			lowStr, highStr, isRange := strings.Cut(sweep, "-")
			if !isRange {
				nodes = append(nodes, root+sweep)
				continue
			}
			low, err := strconv.Atoi(lowStr)
			if err != nil {
				return nil, fmt.Errorf("nodelist %q: %w", list, err)
			}
			high, err := strconv.Atoi(highStr)
			if err != nil {
				return nil, fmt.Errorf("nodelist %q: %w", list, err)
			}
			if high < low {
				return nil, fmt.Errorf("nodelist %q: empty range %s", list, sweep)
			}
			for i := low; i <= high; i++ {
				nodes = append(nodes, fmt.Sprintf("%s%0*d", root, len(lowStr), i))
			}
		}
	}
	if len(nodes) == 0 {
		return nil, errors.New("empty nodelist")
	}
	return nodes, nil
}

// splitTop splits on commas and spaces that are not inside brackets.
func splitTop(s string) []string {
	var items []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
		case ',', ' ':
			if depth == 0 {
				if i > start {
					items = append(items, s[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(s) {
		items = append(items, s[start:])
	}
	return items
}
