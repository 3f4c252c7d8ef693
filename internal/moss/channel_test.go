package moss

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type scriptedConn struct {
	io.Reader
	written bytes.Buffer
	failW   error
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	if c.failW != nil {
		return 0, c.failW
	}
	return c.written.Write(p)
}

func TestChannelSendOnlyAppendsNewline(t *testing.T) {
	conn := &scriptedConn{Reader: strings.NewReader("")}
	ch := NewChannel(conn)
	if err := ch.SendOnly("directory 1"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if conn.written.String() != "directory 1\n" {
		t.Fatalf("unexpected bytes %q", conn.written.String())
	}
}

func TestChannelSendAndAwaitConsumesOneReply(t *testing.T) {
	conn := &scriptedConn{Reader: &chunkReader{chunks: []string{"  yes \r\nhttp://moss/r", "/1\n"}}}
	ch := NewChannel(conn)
	reply, err := ch.SendAndAwait("language c")
	if err != nil {
		t.Fatalf("language: %v", err)
	}
	if reply != "yes" {
		t.Fatalf("expected trimmed yes, got %q", reply)
	}
	reply, err = ch.SendAndAwait("query 0 ")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if reply != "http://moss/r/1" {
		t.Fatalf("expected leftover reply, got %q", reply)
	}
	if conn.written.String() != "language c\nquery 0 \n" {
		t.Fatalf("unexpected bytes %q", conn.written.String())
	}
}

func TestChannelWriteFailureNamesCommand(t *testing.T) {
	conn := &scriptedConn{Reader: strings.NewReader(""), failW: errors.New("broken pipe")}
	ch := NewChannel(conn)
	_, err := ch.SendAndAwait("language java")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Command != "language java" {
		t.Fatalf("expected command error for language, got %v", err)
	}
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestChannelRedactsLoginCommand(t *testing.T) {
	conn := &scriptedConn{Reader: strings.NewReader(""), failW: errors.New("broken pipe")}
	err := NewChannel(conn).SendOnly("moss 987654321")
	if err == nil {
		t.Fatalf("expected error")
	}
	if strings.Contains(err.Error(), "987654321") {
		t.Fatalf("user id leaked into error: %v", err)
	}
}
