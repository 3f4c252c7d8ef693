package moss

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

// mapFS adapts fstest.MapFS to FileSystem.
type mapFS fstest.MapFS

func (m mapFS) Stat(path string) (fs.FileInfo, error) { return fs.Stat(fstest.MapFS(m), path) }
func (m mapFS) ReadFile(path string) ([]byte, error)  { return fs.ReadFile(fstest.MapFS(m), path) }

func TestUploadHeaderMatchesPayload(t *testing.T) {
	body := []byte("line one\nline two\x00binary")
	fsys := mapFS{"src/main.c": {Data: body}}
	conn := &scriptedConn{Reader: strings.NewReader("")}
	up := NewUploader(NewChannel(conn), fsys, "cc")

	ref, data, err := up.Upload("src/main.c", 3)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref.Size != int64(len(body)) || !bytes.Equal(data, body) {
		t.Fatalf("unexpected ref %+v", ref)
	}
	want := fmt.Sprintf("file 3 cc %d src/main.c\n", len(body)) + string(body)
	if conn.written.String() != want {
		t.Fatalf("wire bytes:\n got %q\nwant %q", conn.written.String(), want)
	}
}

func TestUploadSanitizesSpaces(t *testing.T) {
	fsys := mapFS{"my dir/a b.c": {Data: []byte("x")}}
	conn := &scriptedConn{Reader: strings.NewReader("")}
	if _, _, err := NewUploader(NewChannel(conn), fsys, "c").Upload("my dir/a b.c", 1); err != nil {
		t.Fatalf("upload: %v", err)
	}
	header, _, _ := strings.Cut(conn.written.String(), "\n")
	if header != "file 1 c 1 my_dir/a_b.c" {
		t.Fatalf("unexpected header %q", header)
	}
}

func TestUploadEmptyFile(t *testing.T) {
	fsys := mapFS{"empty.c": {Data: nil}}
	conn := &scriptedConn{Reader: strings.NewReader("")}
	if _, _, err := NewUploader(NewChannel(conn), fsys, "c").Upload("empty.c", 0); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if conn.written.String() != "file 0 c 0 empty.c\n" {
		t.Fatalf("unexpected bytes %q", conn.written.String())
	}
}

func TestUploadMissingFile(t *testing.T) {
	conn := &scriptedConn{Reader: strings.NewReader("")}
	_, _, err := NewUploader(NewChannel(conn), mapFS{}, "c").Upload("gone.c", 1)
	if !errors.Is(err, ErrFileAccess) {
		t.Fatalf("expected ErrFileAccess, got %v", err)
	}
	if conn.written.Len() != 0 {
		t.Fatalf("nothing should be written for an unreadable file")
	}
}
