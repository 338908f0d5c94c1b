package container

import (
	"archive/zip"
	"context"
	"io"
	"strings"

	"github.com/craftscan/craftscan/internal/models"
)

// ArchiveReader serves entries from a zip or jar container through the
// shared archive pool.
type ArchiveReader struct {
	container models.Container
	zr        *zip.Reader
	release   func()
}

// NewArchiveReader opens an archive container via the pool.
func NewArchiveReader(c models.Container, pool *ArchivePool) (*ArchiveReader, error) {
	zr, release, err := pool.Acquire(c.Path)
	if err != nil {
		return nil, err
	}
	return &ArchiveReader{container: c, zr: zr, release: release}, nil
}

// Container returns the container this reader was opened for.
func (r *ArchiveReader) Container() models.Container {
	return r.container
}

// Enumerate lists every file entry of the archive.
func (r *ArchiveReader) Enumerate(ctx context.Context, fn func(Entry) error) error {
	for _, f := range r.zr.File {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if err := fn(Entry{
			Path: strings.TrimPrefix(f.Name, "/"),
			Size: int64(f.UncompressedSize64),
		}); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the contents of one entry.
func (r *ArchiveReader) Read(entryPath string) ([]byte, error) {
	for _, f := range r.zr.File {
		if strings.TrimPrefix(f.Name, "/") != entryPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, readErr(r.container, entryPath, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, readErr(r.container, entryPath, err)
		}
		return data, nil
	}
	return nil, models.WrapError(models.ErrKindRead, "entry not found in archive", models.ErrUnknownAsset)
}

// Close releases the pooled handle.
func (r *ArchiveReader) Close() error {
	if r.release != nil {
		r.release()
		r.release = nil
	}
	return nil
}
