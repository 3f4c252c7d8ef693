package moss

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// MaxLineSize bounds a single reply line. The server only ever sends "yes", "no" or a URL.
const MaxLineSize = 64 * 1024

// LineReader extracts newline-terminated lines from a stream that may split or
// merge them arbitrarily across reads. Bytes past the returned line stay buffered.
type LineReader struct {
	br *bufio.Reader
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{br: bufio.NewReaderSize(r, MaxLineSize)}
}

// ReadLine returns the next line without its trailing newline. A stream that
// ends or fails mid-line yields ErrTransport and the partial bytes are not returned.
func (lr *LineReader) ReadLine() (string, error) {
	line, err := lr.br.ReadSlice('\n')
	switch {
	case err == nil:
		return string(line[:len(line)-1]), nil
	case errors.Is(err, bufio.ErrBufferFull):
		return "", fmt.Errorf("%w: reply line exceeds %d bytes", ErrProtocol, MaxLineSize)
	case errors.Is(err, io.EOF):
		return "", fmt.Errorf("%w: connection closed before end of line", ErrTransport)
	default:
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
}

// Buffered reports how many bytes are held for subsequent reads.
func (lr *LineReader) Buffered() int {
	return lr.br.Buffered()
}
