package mpirun

import (
	"reflect"
	"strings"
	"testing"
)

func TestExpandNodelist(t *testing.T) {
	for _, test := range []struct {
		in   string
		want []string
	}{
		{"node1", []string{"node1"}},
		{"node[1-3]", []string{"node1", "node2", "node3"}},
		{"cn[08-10,12],gpu1", []string{"cn08", "cn09", "cn10", "cn12", "gpu1"}},
		{"a[1-2] b", []string{"a1", "a2", "b"}},
	} {
		got, err := ExpandNodelist(test.in)
		if err != nil {
			t.Errorf("%q: %v", test.in, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("%q: got %v, want %v", test.in, got, test.want)
		}
	}
}

func TestExpandNodelistErrors(t *testing.T) {
	for _, in := range []string{"", "node[1-3", "node[x-3]", "node[5-2]"} {
		if got, err := ExpandNodelist(in); err == nil {
			t.Errorf("%q: got %v, want error", in, got)
		}
	}
}

func TestCommand(t *testing.T) {
	all := LocalAddrs(5000, 3)
	if strings.Join(all, ",") != ":5000,:5001,:5002" {
		t.Fatalf("LocalAddrs = %v", all)
	}
	cmd := Command("matmul", []string{"-n", "4"}, all[1], all)
	want := []string{"matmul", "-n", "4", "-mpi-addr", ":5001", "-mpi-alladdr", ":5000,:5001,:5002"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("args %v, want %v", cmd.Args, want)
	}
	if addrOf(cmd) != ":5001" {
		t.Errorf("addrOf = %q", addrOf(cmd))
	}
}
