package mpi

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// Values of the transport flags. Network falls back to them for any field left
// at its zero value.
var (
	FlagAddr        string
	FlagAllAddrs    AddrsFlag
	FlagInitTimeout DurationFlag
	FlagProtocol    string
	FlagPassword    string
)

// AddrsFlag is a comma separated list of addresses. Repeating the flag appends.
type AddrsFlag []string

func (m *AddrsFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *AddrsFlag) Set(value string) error {
	for _, str := range strings.Split(value, ",") {
		str = strings.TrimSpace(str)
		if str == "" {
			return fmt.Errorf("empty address in %q", value)
		}
		*m = append(*m, str)
	}
	return nil
}

// DurationFlag is a time.Duration flag such as "10s". Zero means no limit;
// negative durations are rejected.
type DurationFlag time.Duration

func (m *DurationFlag) String() string {
	return time.Duration(*m).String()
}

func (m *DurationFlag) Set(value string) error {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if dur < 0 {
		return fmt.Errorf("negative duration %s", dur)
	}
	*m = DurationFlag(dur)
	return nil
}

func init() {
	flag.StringVar(&FlagAddr, "mpi-addr", "", "address of the local running process")
	flag.Var(&FlagAllAddrs, "mpi-alladdr", "addresses of all of the processes as comma separated values")
	flag.Var(&FlagInitTimeout, "mpi-inittimeout", "duration to wait before timeout in init")
	flag.StringVar(&FlagProtocol, "mpi-protocol", "tcp", "communication protocol to use")
	flag.StringVar(&FlagPassword, "mpi-password", "", "value every process must present when connecting")
}
