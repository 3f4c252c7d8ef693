package moss

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// FileSystem is the read-only view of local files the client needs.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
}

// PathExpander turns a wildcard pattern into the matching file paths.
type PathExpander interface {
	Expand(pattern string) ([]string, error)
}

// OSFileSystem reads from the host filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }
func (OSFileSystem) ReadFile(path string) ([]byte, error)  { return os.ReadFile(path) }

// GlobExpander expands shell-style patterns with "**" support, matching regular files only.
type GlobExpander struct{}

func (GlobExpander) Expand(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if errors.Is(err, doublestar.ErrBadPattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", ErrValidation, pattern)
	}
	if err != nil {
		return nil, &FileError{Path: pattern, Err: err}
	}
	return matches, nil
}
