package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores blobs as files under a base directory.
type Local struct {
	baseDir string
}

// NewLocal creates a Local backend rooted at baseDir, creating the
// directory if it does not exist.
func NewLocal(baseDir string) (*Local, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Local{baseDir: baseDir}, nil
}

func (l *Local) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.baseDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Put writes to a unique temp file in the base directory, then renames it
// over the destination. Rename is only atomic within one filesystem, which
// is why the temp file lives next to its target; a concurrent Get sees
// either the old value or the new one, never a partial write.
func (l *Local) Put(name string, data []byte) error {
	dst := filepath.Join(l.baseDir, name)

	tmp, err := os.CreateTemp(l.baseDir, ".tmp_*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
