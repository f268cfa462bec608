package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDestination writes to a file on local disk.
type FileDestination struct {
	path string
}

// NewFileDestination writes DefaultFileName inside dir.
func NewFileDestination(dir string) *FileDestination {
	return &FileDestination{path: filepath.Join(dir, DefaultFileName)}
}

// Write replaces the file atomically through a temporary sibling.
func (d *FileDestination) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".trunc-*.geojson")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), d.path)
}

func (d *FileDestination) Path() string { return d.path }

func (d *FileDestination) String() string { return "file:" + d.path }
