package moss

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks an option or argument rejected before any network activity.
	ErrValidation = errors.New("validation failed")
	// ErrFileAccess marks a file that could not be stat'ed or read.
	ErrFileAccess = errors.New("file access")
	// ErrConnection marks a failure to establish the TCP connection.
	ErrConnection = errors.New("connection failed")
	// ErrTransport marks a read or write failure on an established connection.
	ErrTransport = errors.New("transport error")
	// ErrProtocol marks a server reply that is not of the expected shape.
	ErrProtocol = errors.New("protocol error")
	// ErrUnsupportedLanguage is returned when the server answers "no" to the language command.
	ErrUnsupportedLanguage = &protocolError{msg: "server rejected language"}
)

type protocolError struct{ msg string }

func (e *protocolError) Error() string        { return e.msg }
func (e *protocolError) Is(target error) bool { return target == ErrProtocol }

// CommandError identifies the protocol command that failed.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q: %v", redact(e.Command), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// FileError identifies the local file that failed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Is reports FileError as ErrFileAccess regardless of the underlying cause.
func (e *FileError) Is(target error) bool { return target == ErrFileAccess }

// redact hides the user id carried by the login command.
func redact(command string) string {
	if strings.HasPrefix(command, cmdLogin+" ") {
		return cmdLogin + " ***"
	}
	return command
}

// Kind is the error taxonomy bucket, used for logs and exit codes.
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindValidation Kind = "validation"
	KindFileAccess Kind = "file_access"
	KindConnection Kind = "connection"
	KindTransport  Kind = "transport"
	KindProtocol   Kind = "protocol"
	KindCanceled   Kind = "canceled"
)

// Classify maps err to its taxonomy bucket using sentinel errors only.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrFileAccess):
		return KindFileAccess
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, ErrProtocol):
		return KindProtocol
	case errors.Is(err, ErrTransport):
		return KindTransport
	}
	return KindUnknown
}
