// Package scratch manages the on-disk lifetime of uploaded files while a
// capability adapter works on them.
//
// Every upload is written to its own directory, <base>/<uuid>/<name>, so two
// requests carrying the same filename never touch each other's data. Callers
// should prefer WithTempFile, which pairs each Store with exactly one Release.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// TempFile is an upload materialized on disk for the duration of one request.
type TempFile struct {
	ID        string
	Path      string
	CreatedAt time.Time
}

type Storage struct {
	baseDir   string
	logger    *slog.Logger
	failures  prometheus.Counter
	remove    func(string) error
	removeAll func(string) error
}

type Option func(*Storage)

// WithCleanupCounter counts Release failures on c.
func WithCleanupCounter(c prometheus.Counter) Option {
	return func(s *Storage) { s.failures = c }
}

// New creates baseDir if it does not exist.
func New(baseDir string, opts ...Option) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir %s: %w", baseDir, err)
	}
	s := &Storage{
		baseDir:   baseDir,
		logger:    slog.With("component", "scratch"),
		remove:    os.Remove,
		removeAll: os.RemoveAll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Storage) Dir() string { return s.baseDir }

// Store copies r into a fresh per-request directory under a sanitized
// version of filename.
func (s *Storage) Store(r io.Reader, filename string) (*TempFile, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.baseDir, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, SanitizeFilename(filename))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("close upload file: %w", err)
	}

	return &TempFile{ID: id, Path: path, CreatedAt: time.Now()}, nil
}

// Release deletes the file and its per-request directory, including anything
// an adapter left next to the file. Failures are logged and counted, never
// returned.
func (s *Storage) Release(tf *TempFile) {
	if tf == nil {
		return
	}
	steps := []struct {
		path   string
		remove func(string) error
	}{
		{tf.Path, s.remove},
		{filepath.Dir(tf.Path), s.removeAll},
	}
	for _, step := range steps {
		if err := step.remove(step.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to remove temp upload", "path", step.path, "error", err)
			if s.failures != nil {
				s.failures.Inc()
			}
			return
		}
	}
	s.logger.Debug("removed temp upload", "id", tf.ID, "age", time.Since(tf.CreatedAt))
}

// WithTempFile stores r, runs fn with the stored path and releases the file
// on every exit path, including a panic inside fn.
func (s *Storage) WithTempFile(r io.Reader, filename string, fn func(path string) error) error {
	tf, err := s.Store(r, filename)
	if err != nil {
		return err
	}
	defer s.Release(tf)
	return fn(tf.Path)
}

// Sweep removes per-request directories older than maxAge. These only exist
// when a previous process died between Store and Release.
func (s *Storage) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("read scratch dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.baseDir, e.Name())); err != nil {
			s.logger.Warn("failed to sweep stale upload", "id", e.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("swept stale uploads", "count", removed)
	}
	return removed, nil
}
