// Package container opens scan containers and enumerates the files
// inside them. A container is a resource pack directory, a mod or pack
// archive, the vanilla client jar, or the vanilla asset index.
package container

import (
	"context"
	"fmt"

	"github.com/craftscan/craftscan/internal/models"
)

// Entry is one file inside a container. Paths are forward-slash
// relative paths as stored in the container.
type Entry struct {
	Path string
	Size int64
}

// Reader enumerates and reads the files of one container.
type Reader interface {
	// Container returns the container this reader was opened for.
	Container() models.Container

	// Enumerate calls fn for every file entry. Enumeration stops on the
	// first error returned by fn.
	Enumerate(ctx context.Context, fn func(Entry) error) error

	// Read returns the full contents of one entry.
	Read(entryPath string) ([]byte, error)

	// Close releases the reader. Pooled archive handles stay open for
	// reuse until evicted.
	Close() error
}

// Opener opens readers for containers.
type Opener struct {
	archives *ArchivePool
	indexes  *IndexCache
}

// NewOpener creates an opener backed by the given pools.
func NewOpener(archives *ArchivePool, indexes *IndexCache) *Opener {
	return &Opener{archives: archives, indexes: indexes}
}

// Open returns a reader for the container.
func (o *Opener) Open(c models.Container) (Reader, error) {
	switch c.Type {
	case models.ContainerDirectory:
		return NewDirectoryReader(c)
	case models.ContainerZip, models.ContainerJar:
		return NewArchiveReader(c, o.archives)
	case models.ContainerAssetIndex:
		return NewAssetIndexReader(c, o.indexes)
	default:
		return nil, models.Errorf(models.ErrKindContainer, "unsupported container type %q", c.Type)
	}
}

// Close releases pooled resources.
func (o *Opener) Close() error {
	if o.archives != nil {
		o.archives.Close()
	}
	return nil
}

func readErr(c models.Container, entryPath string, err error) error {
	return models.WrapError(models.ErrKindRead,
		fmt.Sprintf("read %s from %s", entryPath, c.Path), err)
}
