package moss

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wire vocabulary.
const (
	cmdLogin         = "moss"
	cmdDirectory     = "directory"
	cmdExperimental  = "X"
	cmdMaxMatches    = "maxmatches"
	cmdShow          = "show"
	cmdLanguage      = "language"
	cmdFile          = "file"
	cmdQuery         = "query"
	cmdEnd           = "end"
	replyNoLanguage  = "no"
	queryOptionsZero = "0"
)

// Channel sends newline-terminated commands and reads single-line replies.
// It is half-duplex: callers must not run two SendAndAwait calls concurrently.
type Channel struct {
	w  io.Writer
	lr *LineReader
}

func NewChannel(rw io.ReadWriter) *Channel {
	return &Channel{w: rw, lr: NewLineReader(rw)}
}

// SendOnly writes command followed by a newline; no reply is expected.
func (c *Channel) SendOnly(command string) error {
	if err := c.writeLine(command); err != nil {
		return &CommandError{Command: command, Err: err}
	}
	return nil
}

// SendAndAwait writes command and returns exactly one reply line, trimmed of
// surrounding whitespace. Extra buffered bytes are left for the next call.
func (c *Channel) SendAndAwait(command string) (string, error) {
	if err := c.writeLine(command); err != nil {
		return "", &CommandError{Command: command, Err: err}
	}
	line, err := c.lr.ReadLine()
	if err != nil {
		return "", &CommandError{Command: command, Err: err}
	}
	return strings.TrimSpace(line), nil
}

// Writer exposes the underlying stream for raw payloads that follow a header line.
func (c *Channel) Writer() io.Writer {
	return c.w
}

func (c *Channel) writeLine(command string) error {
	if _, err := io.WriteString(c.w, command+"\n"); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}

func joinCommand(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func itoa(v int) string { return strconv.Itoa(v) }
