package moss

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestAddFileRequiresAccessiblePath(t *testing.T) {
	dir := t.TempDir()
	c := NewClient("1", nil)
	err := c.AddFile(filepath.Join(dir, "missing.c"))
	if !errors.Is(err, ErrFileAccess) {
		t.Fatalf("expected ErrFileAccess, got %v", err)
	}
	if err := c.AddBaseFile(dir); !errors.Is(err, ErrFileAccess) {
		t.Fatalf("expected directory to be rejected, got %v", err)
	}
	if len(c.Submissions()) != 0 || len(c.BaseFiles()) != 0 {
		t.Fatalf("failed adds must not change the lists")
	}
}

func TestAddByWildcard(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "s1", "src"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	a := writeFile(t, dir, "a.c", "a")
	b := writeFile(t, filepath.Join(dir, "s1", "src"), "b.c", "b")
	writeFile(t, dir, "notes.txt", "n")

	c := NewClient("1", nil)
	n, err := c.AddByWildcard(filepath.Join(dir, "**", "*.c"))
	if err != nil {
		t.Fatalf("wildcard: %v", err)
	}
	got := c.Submissions()
	slices.Sort(got)
	want := []string{a, b}
	slices.Sort(want)
	if n != 2 || !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v (n=%d)", want, got, n)
	}

	n, err = c.AddBaseByWildcard(filepath.Join(dir, "*.java"))
	if err != nil || n != 0 {
		t.Fatalf("empty match should add nothing: n=%d err=%v", n, err)
	}
	if _, err := c.AddByWildcard(filepath.Join(dir, "[")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected bad pattern to be a validation error, got %v", err)
	}
}

func TestSetServer(t *testing.T) {
	c := NewClient("1", nil)
	if c.Addr() != "moss.stanford.edu:7690" {
		t.Fatalf("unexpected default addr %q", c.Addr())
	}
	if err := c.SetServer("", 80); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := c.SetServer("localhost", 70000); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := c.SetServer("localhost", 9000); err != nil || c.Addr() != "localhost:9000" {
		t.Fatalf("set server: %v addr=%s", err, c.Addr())
	}
}

func TestClassify(t *testing.T) {
	cases := map[Kind]error{
		KindValidation: validationErr(),
		KindFileAccess: &FileError{Path: "x", Err: os.ErrNotExist},
		KindProtocol:   &CommandError{Command: "language c", Err: ErrUnsupportedLanguage},
		KindTransport:  &CommandError{Command: "end", Err: ErrTransport},
		KindUnknown:    errors.New("other"),
	}
	for want, err := range cases {
		if got := Classify(err); got != want {
			t.Fatalf("Classify(%v) = %s, want %s", err, got, want)
		}
	}
}

func validationErr() error {
	o := DefaultOptions()
	return o.SetResultLimit(0)
}
