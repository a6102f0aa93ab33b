package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"
)

// syncFile flushes f to stable storage.
var syncFile = func(f *os.File) error {
	return f.Sync()
}

// Local writes every content into its own file under dir.
type Local struct {
	dir string
}

// NewLocal create local storage rooted at dir
func NewLocal(dir string) *Local {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultFolderPath
	}

	return &Local{dir: dir}
}

// Dir returns the folder the contents are written to.
func (s *Local) Dir() string {
	return s.dir
}

// Write saves data into a fresh uuid named file and returns its path.
func (s *Local) Write(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create folder %q", s.dir)
	}

	fpath := filepath.Join(s.dir, uuid.NewString())
	if err := writeDurably(fpath, data); err != nil {
		return "", errors.Wrapf(err, "write file %q", fpath)
	}

	// the new directory entry must survive a crash as well
	if err := syncDir(s.dir); err != nil {
		_ = os.Remove(fpath)
		return "", errors.Wrapf(err, "sync folder %q", s.dir)
	}

	return fpath, nil
}

// writeDurably creates fpath, which must not exist yet,
// and returns only after data has been flushed to disk.
// The file is removed again when any step after its creation fails.
func writeDurably(fpath string, data []byte) (err error) {
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(fpath)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write")
	}
	if err = syncFile(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "fsync")
	}

	return errors.Wrap(f.Close(), "close")
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer d.Close() //nolint:errcheck

	return errors.Wrap(syncFile(d), "fsync")
}

// Remove deletes a file previously returned by Write.
// Paths outside dir are refused.
func (s *Local) Remove(_ context.Context, location string) error {
	rel, err := filepath.Rel(s.dir, location)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return errors.Errorf("location %q is outside of %q", location, s.dir)
	}

	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove file %q", location)
	}

	return nil
}
