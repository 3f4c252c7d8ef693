package moss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultServer = "moss.stanford.edu"
	DefaultPort   = 7690
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Config wires a Client to its collaborators. Zero fields take defaults.
type Config struct {
	Server     string
	Port       int
	Logger     *slog.Logger
	FileSystem FileSystem
	Expander   PathExpander
	Observer   Observer

	// Dialer opens the connection; defaults to a zero net.Dialer.
	Dialer Dialer
}

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client holds the user id, server address, option set and the ordered base and
// submission file lists. It is not safe for concurrent mutation, but each Send
// snapshots its state so independent sends never share a connection.
type Client struct {
	userID string
	server string
	port   int

	options     Options
	baseFiles   []string
	submissions []string

	logger   *slog.Logger
	fs       FileSystem
	expander PathExpander
	observer Observer
	dialer   Dialer
}

// NewClient creates a client for userID. cfg may be nil.
func NewClient(userID string, cfg *Config) *Client {
	c := &Client{
		userID:   userID,
		server:   DefaultServer,
		port:     DefaultPort,
		options:  DefaultOptions(),
		logger:   discardLogger,
		fs:       OSFileSystem{},
		expander: GlobExpander{},
		dialer:   &net.Dialer{},
	}
	if cfg == nil {
		return c
	}
	if cfg.Server != "" {
		c.server = cfg.Server
	}
	if cfg.Port != 0 {
		c.port = cfg.Port
	}
	if cfg.Logger != nil {
		c.logger = cfg.Logger
	}
	if cfg.FileSystem != nil {
		c.fs = cfg.FileSystem
	}
	if cfg.Expander != nil {
		c.expander = cfg.Expander
	}
	if cfg.Observer != nil {
		c.observer = cfg.Observer
	}
	if cfg.Dialer != nil {
		c.dialer = cfg.Dialer
	}
	return c
}

func (c *Client) UserID() string        { return c.userID }
func (c *Client) SetUserID(id string)   { c.userID = id }
func (c *Client) Options() *Options     { return &c.options }
func (c *Client) Addr() string          { return net.JoinHostPort(c.server, strconv.Itoa(c.port)) }
func (c *Client) BaseFiles() []string   { return slices.Clone(c.baseFiles) }
func (c *Client) Submissions() []string { return slices.Clone(c.submissions) }

// SetObserver replaces the observer used by subsequent sends; nil disables it.
func (c *Client) SetObserver(o Observer) { c.observer = o }

// SetServer overrides the server address.
func (c *Client) SetServer(host string, port int) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("%w: server host is required", ErrValidation)
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrValidation, port)
	}
	c.server = host
	c.port = port
	return nil
}

// AddBaseFile appends a reference file uploaded with id 0. The path must be accessible now.
func (c *Client) AddBaseFile(path string) error {
	if err := c.checkFile(path); err != nil {
		return err
	}
	c.baseFiles = append(c.baseFiles, path)
	return nil
}

// AddFile appends a submission file. Adding the same path twice uploads it twice.
func (c *Client) AddFile(path string) error {
	if err := c.checkFile(path); err != nil {
		return err
	}
	c.submissions = append(c.submissions, path)
	return nil
}

// AddByWildcard adds every file matching pattern as a submission and returns how
// many were added. It stops at the first file that cannot be added.
func (c *Client) AddByWildcard(pattern string) (int, error) {
	return c.addMatches(pattern, c.AddFile)
}

// AddBaseByWildcard is AddByWildcard for base files.
func (c *Client) AddBaseByWildcard(pattern string) (int, error) {
	return c.addMatches(pattern, c.AddBaseFile)
}

func (c *Client) addMatches(pattern string, add func(string) error) (int, error) {
	matches, err := c.expander.Expand(pattern)
	if err != nil {
		return 0, err
	}
	for i, path := range matches {
		if err := add(path); err != nil {
			return i, err
		}
	}
	return len(matches), nil
}

func (c *Client) checkFile(path string) error {
	info, err := c.fs.Stat(path)
	if err != nil {
		return &FileError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &FileError{Path: path, Err: errors.New("is a directory")}
	}
	return nil
}

// Send runs one complete session: connect, configure, confirm the language,
// upload base then submission files, query, and return the report URL. The
// connection is always closed with an "end" command before Send returns.
//
// Send imposes no timeout of its own; a server that never replies blocks until
// ctx is done, at which point the connection is closed.
func (c *Client) Send(ctx context.Context) (string, error) {
	s := &session{
		userID:      c.userID,
		addr:        c.Addr(),
		options:     c.options,
		baseFiles:   slices.Clone(c.baseFiles),
		submissions: slices.Clone(c.submissions),
		fs:          c.fs,
		dialer:      c.dialer,
		observer:    c.observer,
		logger:      c.logger,
	}
	return s.run(ctx)
}
