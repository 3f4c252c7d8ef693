package moss

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkReader returns one chunk per Read call, mimicking arbitrary TCP segmentation.
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestLineReaderSplitAcrossReads(t *testing.T) {
	lr := NewLineReader(&chunkReader{chunks: []string{"hello\nwor", "ld\n"}})
	for _, want := range []string{"hello", "world"} {
		got, err := lr.ReadLine()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestLineReaderKeepsMergedLines(t *testing.T) {
	lr := NewLineReader(&chunkReader{chunks: []string{"yes\nhttp://x/1\n"}})
	first, err := lr.ReadLine()
	if err != nil || first != "yes" {
		t.Fatalf("first line: %q, %v", first, err)
	}
	if lr.Buffered() != len("http://x/1\n") {
		t.Fatalf("expected remainder to stay buffered, have %d bytes", lr.Buffered())
	}
	second, err := lr.ReadLine()
	if err != nil || second != "http://x/1" {
		t.Fatalf("second line: %q, %v", second, err)
	}
}

func TestLineReaderByteAtATime(t *testing.T) {
	var chunks []string
	for _, b := range "abc\n" {
		chunks = append(chunks, string(b))
	}
	lr := NewLineReader(&chunkReader{chunks: chunks})
	got, err := lr.ReadLine()
	if err != nil || got != "abc" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestLineReaderPartialLineAtEOF(t *testing.T) {
	lr := NewLineReader(&chunkReader{chunks: []string{"wor"}})
	got, err := lr.ReadLine()
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if got != "" {
		t.Fatalf("partial line leaked: %q", got)
	}
}

func TestLineReaderStreamError(t *testing.T) {
	boom := errors.New("connection reset")
	lr := NewLineReader(&chunkReader{chunks: []string{"ye"}, err: boom})
	_, err := lr.ReadLine()
	if !errors.Is(err, ErrTransport) || !errors.Is(err, boom) {
		t.Fatalf("expected transport error wrapping cause, got %v", err)
	}
}

func TestLineReaderOversizedLine(t *testing.T) {
	lr := NewLineReader(strings.NewReader(strings.Repeat("a", MaxLineSize+10) + "\n"))
	_, err := lr.ReadLine()
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}
