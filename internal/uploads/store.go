// Package uploads is the attachment blob store the order core delegates to.
// Files live on local disk keyed by their generated filename; the core only
// ever asks for deletes, and those are best effort.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type Store struct {
	dir string
	log *zap.Logger
}

func NewStore(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log}
}

// Save writes one blob and returns its size. The caller supplies the
// generated filename; collisions are the caller's problem.
func (s *Store) Save(_ context.Context, filename string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, err
	}
	path := filepath.Join(s.dir, filepath.Base(filename))
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// DeleteFiles removes the named blobs. Missing files are fine; other
// failures are collected so the caller can log them, but a partial delete
// still removes what it can.
func (s *Store) DeleteFiles(_ context.Context, filenames []string) error {
	var errs []error
	for _, name := range filenames {
		path := filepath.Join(s.dir, filepath.Base(name))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("delete attachment", zap.String("file", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
