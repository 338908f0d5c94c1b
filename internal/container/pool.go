package container

import (
	"archive/zip"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/craftscan/craftscan/internal/models"
)

// pooledArchive is a refcounted open zip handle. Eviction defers the
// underlying close until the last borrower releases it.
type pooledArchive struct {
	mu      sync.Mutex
	refs    int
	evicted bool
	zr      *zip.ReadCloser
}

func (p *pooledArchive) acquire() {
	p.mu.Lock()
	p.refs++
	p.mu.Unlock()
}

func (p *pooledArchive) release() {
	p.mu.Lock()
	p.refs--
	closeNow := p.evicted && p.refs == 0
	p.mu.Unlock()
	if closeNow {
		_ = p.zr.Close()
	}
}

func (p *pooledArchive) evict() {
	p.mu.Lock()
	p.evicted = true
	closeNow := p.refs == 0
	p.mu.Unlock()
	if closeNow {
		_ = p.zr.Close()
	}
}

// ArchivePool caches open zip handles per archive path so repeated
// reads against the same mod or pack skip re-parsing the central
// directory. Reads of random entries from a zip are cheap once the
// handle is open.
type ArchivePool struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *pooledArchive]
}

// NewArchivePool creates a pool holding up to size open archives.
func NewArchivePool(size int) (*ArchivePool, error) {
	cache, err := lru.NewWithEvict(size, func(_ string, pa *pooledArchive) {
		pa.evict()
	})
	if err != nil {
		return nil, err
	}
	return &ArchivePool{cache: cache}, nil
}

// Acquire returns an open handle for the archive and a release func.
// Release must be called when the borrower is done with the handle.
func (p *ArchivePool) Acquire(path string) (*zip.Reader, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pa, ok := p.cache.Get(path); ok {
		pa.acquire()
		return &pa.zr.Reader, pa.release, nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, models.WrapError(models.ErrKindContainer, "open archive", err)
	}

	pa := &pooledArchive{zr: zr}
	pa.acquire()
	p.cache.Add(path, pa)
	return &pa.zr.Reader, pa.release, nil
}

// Invalidate drops the pooled handle for one archive path.
func (p *ArchivePool) Invalidate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Remove(path)
}

// Close evicts every pooled handle.
func (p *ArchivePool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Purge()
}
