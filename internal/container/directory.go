package container

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/craftscan/craftscan/internal/models"
)

// DirectoryReader serves a resource pack laid out as a plain directory.
type DirectoryReader struct {
	container models.Container
	root      string
}

// NewDirectoryReader opens a directory container.
func NewDirectoryReader(c models.Container) (*DirectoryReader, error) {
	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, models.WrapError(models.ErrKindContainer, "open directory container", err)
	}
	if !info.IsDir() {
		return nil, models.Errorf(models.ErrKindContainer, "not a directory: %s", c.Path)
	}
	return &DirectoryReader{container: c, root: c.Path}, nil
}

// Container returns the container this reader was opened for.
func (r *DirectoryReader) Container() models.Container {
	return r.container
}

// Enumerate walks the directory tree. Symlinks are not followed and
// unreadable subtrees are skipped rather than failing the scan.
func (r *DirectoryReader) Enumerate(ctx context.Context, fn func(Entry) error) error {
	return filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		return fn(Entry{
			Path: filepath.ToSlash(rel),
			Size: info.Size(),
		})
	})
}

// Read returns the contents of one entry.
func (r *DirectoryReader) Read(entryPath string) ([]byte, error) {
	if strings.Contains(entryPath, "..") || strings.ContainsRune(entryPath, 0) {
		return nil, models.Errorf(models.ErrKindRead, "invalid entry path %q", entryPath)
	}

	full := filepath.Join(r.root, filepath.FromSlash(entryPath))
	if !strings.HasPrefix(full, r.root+string(filepath.Separator)) {
		return nil, models.Errorf(models.ErrKindRead, "entry path escapes container: %q", entryPath)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, readErr(r.container, entryPath, err)
	}
	return data, nil
}

// Close is a no-op for directories.
func (r *DirectoryReader) Close() error {
	return nil
}
