package moss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
)

// State is a step of the session protocol. States only advance in declaration
// order, except that any state may jump to StateClosed.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateConfigured
	StateLanguageConfirmed
	StateFilesUploaded
	StateQueried
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateConfigured:
		return "configured"
	case StateLanguageConfirmed:
		return "language_confirmed"
	case StateFilesUploaded:
		return "files_uploaded"
	case StateQueried:
		return "queried"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Observer receives session progress. Calls happen on the goroutine running Send.
type Observer interface {
	StateChanged(State)
	// Uploaded is called after a file's header and bytes were written.
	// data must not be retained past the call without copying.
	Uploaded(ref FileRef, data []byte)
}

type session struct {
	userID      string
	addr        string
	options     Options
	baseFiles   []string
	submissions []string

	fs       FileSystem
	dialer   Dialer
	observer Observer
	logger   *slog.Logger

	conn net.Conn
	ch   *Channel
}

func (s *session) run(ctx context.Context) (reportURL string, err error) {
	logger := s.logger.With("addr", s.addr)
	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrConnection, s.addr, err)
	}
	s.conn = conn
	s.ch = NewChannel(conn)
	s.advance(StateConnected)

	// Closing the connection is the only way to interrupt a blocked read.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		s.close(logger)
		if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		if err != nil {
			logger.Debug("session aborted", "kind", Classify(err), "err", err)
		}
	}()

	if err := s.configure(); err != nil {
		return "", err
	}
	if err := s.confirmLanguage(); err != nil {
		return "", err
	}
	if err := s.uploadAll(logger); err != nil {
		return "", err
	}
	reportURL, err = s.query()
	if err != nil {
		return "", err
	}
	logger.Info("report ready", "url", reportURL, "files", len(s.submissions), "base_files", len(s.baseFiles))
	return reportURL, nil
}

func (s *session) configure() error {
	o := &s.options
	commands := []string{
		joinCommand(cmdLogin, s.userID),
		joinCommand(cmdDirectory, itoa(o.DirectoryMode())),
		joinCommand(cmdExperimental, itoa(o.ExperimentalServer())),
		joinCommand(cmdMaxMatches, itoa(o.IgnoreLimit())),
		joinCommand(cmdShow, itoa(o.ResultLimit())),
	}
	for _, cmd := range commands {
		if err := s.ch.SendOnly(cmd); err != nil {
			return err
		}
	}
	s.advance(StateConfigured)
	return nil
}

func (s *session) confirmLanguage() error {
	lang := s.options.Language()
	cmd := joinCommand(cmdLanguage, lang)
	reply, err := s.ch.SendAndAwait(cmd)
	if err != nil {
		return err
	}
	switch strings.ToLower(reply) {
	case "yes":
	case replyNoLanguage:
		return &CommandError{Command: cmd, Err: fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)}
	default:
		return &CommandError{Command: cmd, Err: fmt.Errorf("%w: unexpected reply %q", ErrProtocol, reply)}
	}
	s.advance(StateLanguageConfirmed)
	return nil
}

func (s *session) uploadAll(logger *slog.Logger) error {
	up := NewUploader(s.ch, s.fs, s.options.Language())
	send := func(path string, id int) error {
		ref, data, err := up.Upload(path, id)
		if err != nil {
			return err
		}
		logger.Debug("uploaded file", "id", ref.ID, "size", ref.Size, "path", ref.Path)
		if s.observer != nil {
			s.observer.Uploaded(ref, data)
		}
		return nil
	}
	for _, path := range s.baseFiles {
		if err := send(path, BaseFileID); err != nil {
			return err
		}
	}
	for i, path := range s.submissions {
		if err := send(path, i+1); err != nil {
			return err
		}
	}
	s.advance(StateFilesUploaded)
	return nil
}

func (s *session) query() (string, error) {
	cmd := joinCommand(cmdQuery, queryOptionsZero, s.options.Comment())
	reply, err := s.ch.SendAndAwait(cmd)
	if err != nil {
		return "", err
	}
	if !looksLikeURL(reply) {
		return "", &CommandError{Command: cmd, Err: fmt.Errorf("%w: server replied %q", ErrProtocol, reply)}
	}
	s.advance(StateQueried)
	return reply, nil
}

// close sends "end" and closes the connection. Failures here are logged only, so
// the error that ended the session is the one the caller sees.
func (s *session) close(logger *slog.Logger) {
	if err := s.ch.SendOnly(cmdEnd); err != nil {
		logger.Warn("send end", "err", err)
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn("close connection", "err", err)
	}
	s.advance(StateClosed)
}

func (s *session) advance(next State) {
	s.logger.Debug("session state", "state", next.String())
	if s.observer != nil {
		s.observer.StateChanged(next)
	}
}

func looksLikeURL(reply string) bool {
	u, err := url.Parse(reply)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
