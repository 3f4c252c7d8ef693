package moss

import (
	"fmt"
	"net"
	"strings"
)

// FileRef is a file scheduled for, or already sent in, an upload.
type FileRef struct {
	Path string
	ID   int
	Size int64
}

// BaseFileID is the id every base file is uploaded with; submissions start at 1.
const BaseFileID = 0

// SanitizeName replaces spaces, which the file command cannot carry, with underscores.
func SanitizeName(path string) string {
	return strings.ReplaceAll(path, " ", "_")
}

// Uploader frames local files onto a channel as a header line followed by raw bytes.
type Uploader struct {
	ch       *Channel
	fs       FileSystem
	language string
}

func NewUploader(ch *Channel, fsys FileSystem, language string) *Uploader {
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	return &Uploader{ch: ch, fs: fsys, language: language}
}

// Upload reads path and writes "file <id> <lang> <size> <name>" followed by exactly
// size bytes. The size is taken from the bytes read, so header and payload always agree.
func (u *Uploader) Upload(path string, id int) (FileRef, []byte, error) {
	data, err := u.fs.ReadFile(path)
	if err != nil {
		return FileRef{}, nil, &FileError{Path: path, Err: err}
	}
	ref := FileRef{Path: path, ID: id, Size: int64(len(data))}
	header := FileHeader(ref, u.language)

	bufs := net.Buffers{[]byte(header + "\n"), data}
	if _, err := bufs.WriteTo(u.ch.Writer()); err != nil {
		return ref, nil, &CommandError{Command: header, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}
	return ref, data, nil
}

// FileHeader renders the file command for ref, without the trailing newline.
func FileHeader(ref FileRef, language string) string {
	return joinCommand(cmdFile, itoa(ref.ID), language, fmt.Sprint(ref.Size), SanitizeName(ref.Path))
}
