package history

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/antonkrylov/mossctl/internal/moss"
)

const (
	recordFile  = "record.pb"
	archiveFile = "files.zst"

	maxArchiveEntry = 64 * 1024 * 1024
)

// ErrNotFound marks a history id with no record on disk.
var ErrNotFound = errors.New("submission not found")

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Store keeps one directory per submission under rootDir.
type Store struct {
	rootDir string
	logger  *slog.Logger
}

func New(rootDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = discardLogger
	}
	return &Store{rootDir: rootDir, logger: logger}
}

// Begin allocates an id for rec, writes its initial record and returns a
// Recorder that follows the session. With archive set, every uploaded byte is
// kept in a zstd-compressed archive next to the record.
func (s *Store) Begin(rec Record, archive bool) (*Recorder, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now()
	rec.State = moss.StateDisconnected.String()
	rec.Archived = archive
	dir := filepath.Join(s.rootDir, rec.ID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	r := &Recorder{dir: dir, rec: rec, logger: s.logger.With("submission", rec.ID)}
	if err := writeRecord(filepath.Join(dir, recordFile), &r.rec); err != nil {
		return nil, err
	}
	if archive {
		if err := r.openArchive(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.rootDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rec, err := readRecord(filepath.Join(s.rootDir, e.Name(), recordFile))
		if err != nil {
			s.logger.Debug("skip unreadable record", "dir", e.Name(), "err", err)
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Get(id string) (*Record, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	rec, err := readRecord(filepath.Join(dir, recordFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

func (s *Store) Delete(id string) error {
	dir, err := s.dir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return os.RemoveAll(dir)
}

// ArchivedFile is one upload replayed from an archive.
type ArchivedFile struct {
	Path string
	ID   int
	Data []byte
}

// Replay calls fn for every archived upload of submission id, in upload order.
func (s *Store) Replay(id string, fn func(ArchivedFile) error) error {
	if fn == nil {
		return fmt.Errorf("replay callback is required")
	}
	dir, err := s.dir(id)
	if err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(dir, archiveFile))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: no archive for %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	r := bufio.NewReader(dec)
	for {
		hdr, err := readDelimited(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		meta := &structpb.Struct{}
		if err := proto.Unmarshal(hdr, meta); err != nil {
			return fmt.Errorf("archive header: %w", err)
		}
		data, err := readDelimited(r)
		if err != nil {
			return fmt.Errorf("archive payload: %w", err)
		}
		if err := fn(ArchivedFile{
			Path: meta.GetFields()["path"].GetStringValue(),
			ID:   int(meta.GetFields()["id"].GetNumberValue()),
			Data: data,
		}); err != nil {
			return err
		}
	}
}

// dir rejects ids that are not uuids so they cannot escape rootDir.
func (s *Store) dir(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return filepath.Join(s.rootDir, id), nil
}

// Recorder tracks a running submission. It implements moss.Observer.
type Recorder struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	rec     Record
	file    *os.File
	enc     *zstd.Encoder
	bw      *bufio.Writer
	archErr error
}

var _ moss.Observer = (*Recorder)(nil)

func (r *Recorder) ID() string { return r.rec.ID }

func (r *Recorder) StateChanged(state moss.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Closed is always reached; keep the furthest protocol step instead.
	if state != moss.StateClosed {
		r.rec.State = state.String()
	}
}

func (r *Recorder) Uploaded(ref moss.FileRef, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bw == nil || r.archErr != nil {
		return
	}
	hdr, err := structpb.NewStruct(map[string]any{"path": ref.Path, "id": ref.ID, "size": ref.Size})
	if err == nil {
		var b []byte
		if b, err = proto.Marshal(hdr); err == nil {
			if err = writeDelimited(r.bw, b); err == nil {
				err = writeDelimited(r.bw, data)
			}
		}
	}
	if err != nil {
		r.archErr = err
		r.logger.Warn("archive upload", "path", ref.Path, "err", err)
	}
}

// Finish stores the outcome and closes the archive. sendErr is the error Send returned.
func (r *Recorder) Finish(reportURL string, sendErr error) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec.FinishedAt = time.Now()
	r.rec.ReportURL = reportURL
	if sendErr != nil {
		r.rec.Error = sendErr.Error()
		r.rec.ErrorKind = string(moss.Classify(sendErr))
	}
	archErr := r.closeArchive()
	if archErr != nil {
		r.rec.Archived = false
		_ = os.Remove(filepath.Join(r.dir, archiveFile))
	}
	if err := writeRecord(filepath.Join(r.dir, recordFile), &r.rec); err != nil {
		return nil, err
	}
	rec := r.rec
	return &rec, archErr
}

func (r *Recorder) openArchive() error {
	f, err := os.OpenFile(filepath.Join(r.dir, archiveFile), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	r.file = f
	r.enc = enc
	r.bw = bufio.NewWriterSize(enc, 256*1024)
	return nil
}

func (r *Recorder) closeArchive() error {
	if r.file == nil {
		return nil
	}
	err := r.archErr
	if ferr := r.bw.Flush(); err == nil {
		err = ferr
	}
	if cerr := r.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file, r.enc, r.bw = nil, nil, nil
	return err
}

func readDelimited(r *bufio.Reader) ([]byte, error) {
	l, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if l > maxArchiveEntry {
		return nil, fmt.Errorf("record too large: %d", l)
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeDelimited(w *bufio.Writer, msg []byte) error {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(msg)))
	if _, err := w.Write(hdr[:n]); err != nil {
		return err
	}
	_, err := w.Write(msg)
	return err
}

func writeRecord(path string, rec *Record) error {
	s, err := rec.Struct()
	if err != nil {
		return err
	}
	b, err := proto.Marshal(s)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readRecord(path string) (*Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{}
	if err := proto.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return recordFromStruct(s)
}
