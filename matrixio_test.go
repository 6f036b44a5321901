package matmul

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestReadMatrix(t *testing.T) {
	m, err := ReadMatrix(strings.NewReader("1 2 3\n4 5.5 6 \n\n7 8 -9\n"), 3)
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5.5, 6, 7, 8, -9})
	if !mat.Equal(m, want) {
		t.Errorf("got\n%v\nwant\n%v", mat.Formatted(m), mat.Formatted(want))
	}
}

func TestReadMatrixMalformed(t *testing.T) {
	for _, test := range []struct {
		name, in string
	}{
		{"short", "1 2 3"},
		{"long", "1 2 3 4 5"},
		{"token", "1 2 x 4"},
		{"empty", ""},
	} {
		if _, err := ReadMatrix(strings.NewReader(test.in), 2); err == nil {
			t.Errorf("%s: no error", test.name)
		}
	}
}

func TestLoadMatrixErrors(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.txt")
	_, err := LoadMatrix(missing, 2)
	var ierr *InputError
	if !errors.As(err, &ierr) || ierr.Path != missing {
		t.Fatalf("missing file: got %v, want InputError for %s", err, missing)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error %v does not wrap os.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("1 2\n3 four\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMatrix(bad, 2); !errors.As(err, &ierr) {
		t.Errorf("malformed file: got %v, want InputError", err)
	}
}

func TestSaveLoadMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.txt")
	m := RandomIntMatrix(rand.New(rand.NewSource(3)), 8)
	if err := SaveMatrix(path, m); err != nil {
		t.Fatal(err)
	}
	got, err := LoadMatrix(path, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(got, m) {
		t.Errorf("loaded matrix differs from saved")
	}
	for _, v := range m.RawMatrix().Data {
		if v < 1 || v > 100 || v != float64(int(v)) {
			t.Fatalf("generated value %v not an integer in [1, 100]", v)
		}
	}
}

func TestWriteMatrix(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatrix(&buf, mat.NewDense(2, 2, []float64{1, 2, 3, 4.5}), "%f"); err != nil {
		t.Fatal(err)
	}
	want := "1.000000 2.000000\n3.000000 4.500000\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
