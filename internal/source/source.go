// Package source provides the file capability used to resolve includes and to
// load text for diagnostics.
package source

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// Source answers whether a file exists and returns its full contents.
type Source interface {
	Exists(path string) bool
	ReadAll(path string) (string, error)
}

// FS is a Source backed by an afero filesystem.
type FS struct {
	fs afero.Fs
}

func NewFS(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// OS returns a Source reading the host filesystem.
func OS() *FS {
	return NewFS(afero.NewOsFs())
}

// Memory returns a Source over an empty in-memory filesystem, mostly for
// tests. Files are added with WriteFile.
func Memory() *FS {
	return NewFS(afero.NewMemMapFs())
}

func (s *FS) Exists(path string) bool {
	st, err := s.fs.Stat(path)
	return err == nil && !st.IsDir()
}

func (s *FS) ReadAll(path string) (string, error) {
	bs, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// WriteFile creates path, and its parent directories, with contents.
func (s *FS) WriteFile(path, contents string) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, path, []byte(contents), 0o644)
}
