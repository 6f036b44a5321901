package mpi

import (
	"testing"
	"time"
)

func TestAddrsFlag(t *testing.T) {
	var a AddrsFlag
	if err := a.Set("host1:5000, host2:5001"); err != nil {
		t.Fatal(err)
	}
	if err := a.Set(":5002"); err != nil {
		t.Fatal(err)
	}
	if got, want := a.String(), "host1:5000,host2:5001,:5002"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if err := a.Set("host3:5003,,host4:5004"); err == nil {
		t.Error("empty address accepted")
	}
}

func TestDurationFlag(t *testing.T) {
	var d DurationFlag
	if err := d.Set("1m30s"); err != nil {
		t.Fatal(err)
	}
	if time.Duration(d) != 90*time.Second {
		t.Errorf("got %v, want 1m30s", time.Duration(d))
	}
	for _, bad := range []string{"soon", "-1s"} {
		if err := d.Set(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
	if time.Duration(d) != 90*time.Second {
		t.Errorf("rejected value changed the flag to %v", time.Duration(d))
	}
}
