package metadata

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Writer stores records as {dir}/{database}_{table}.txt. Existing files are
// overwritten, so a later record with the same name replaces an earlier one.
type Writer struct {
	fs  afero.Fs
	dir string
}

func NewWriter(fsys afero.Fs, dir string) *Writer {
	return &Writer{fs: fsys, dir: dir}
}

// EnsureDir creates the output directory if it does not exist.
func (w *Writer) EnsureDir() error {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", w.dir, err)
	}
	return nil
}

// Write stores the record text verbatim and returns the file path.
func (w *Writer) Write(rec Record) (string, error) {
	if err := w.EnsureDir(); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, rec.FileName())
	if err := afero.WriteFile(w.fs, path, []byte(rec.Text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
