package container

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/craftscan/craftscan/internal/models"
)

// assetIndexFile is the on-disk shape of a launcher asset index.
type assetIndexFile struct {
	Objects map[string]struct {
		Hash string `json:"hash"`
		Size int64  `json:"size"`
	} `json:"objects"`
}

// parsedIndex is an asset index parsed and normalized for enumeration.
// Entry paths are rewritten to assets/<namespace>/<rest> so records
// derived from them look like any other container entry; objects maps
// each normalized path back to its content-addressed object file.
type parsedIndex struct {
	modTimeNs int64
	size      int64
	entries   []Entry
	objects   map[string]string // entry path -> hash
}

// IndexCache caches parsed asset indexes keyed by file path. Entries
// are revalidated against the file stat on every lookup.
type IndexCache struct {
	cache *lru.Cache[string, *parsedIndex]
}

// NewIndexCache creates a cache holding up to size parsed indexes.
func NewIndexCache(size int) (*IndexCache, error) {
	cache, err := lru.New[string, *parsedIndex](size)
	if err != nil {
		return nil, err
	}
	return &IndexCache{cache: cache}, nil
}

func (c *IndexCache) load(path string) (*parsedIndex, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, models.WrapError(models.ErrKindContainer, "stat asset index", err)
	}

	if cached, ok := c.cache.Get(path); ok {
		if cached.modTimeNs == info.ModTime().UnixNano() && cached.size == info.Size() {
			return cached, nil
		}
		c.cache.Remove(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.WrapError(models.ErrKindContainer, "read asset index", err)
	}

	var file assetIndexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, models.WrapError(models.ErrKindContainer, "parse asset index", err)
	}

	parsed := &parsedIndex{
		modTimeNs: info.ModTime().UnixNano(),
		size:      info.Size(),
		objects:   make(map[string]string, len(file.Objects)),
	}

	for key, obj := range file.Objects {
		key = strings.TrimPrefix(strings.TrimPrefix(key, "./"), "/")
		if key == "" || obj.Hash == "" {
			continue
		}
		// Keys outside a namespace (icons/, realms/, pack.mcmeta)
		// belong to the minecraft namespace by convention.
		entryPath := "assets/" + key
		if !strings.HasPrefix(key, "minecraft/") {
			entryPath = "assets/minecraft/" + key
		}
		if _, dup := parsed.objects[entryPath]; dup {
			continue
		}
		parsed.objects[entryPath] = obj.Hash
		parsed.entries = append(parsed.entries, Entry{Path: entryPath, Size: obj.Size})
	}

	// Map iteration order is random; keep enumeration deterministic.
	sort.Slice(parsed.entries, func(i, j int) bool {
		return parsed.entries[i].Path < parsed.entries[j].Path
	})

	c.cache.Add(path, parsed)
	return parsed, nil
}

// AssetIndexReader serves vanilla assets listed in an asset index file
// out of the launcher's content-addressed objects store.
type AssetIndexReader struct {
	container  models.Container
	parsed     *parsedIndex
	objectsDir string
}

// NewAssetIndexReader opens an asset index container. The container
// path points at assets/indexes/<id>.json; objects live in the sibling
// assets/objects directory.
func NewAssetIndexReader(c models.Container, cache *IndexCache) (*AssetIndexReader, error) {
	parsed, err := cache.load(c.Path)
	if err != nil {
		return nil, err
	}

	assetsRoot := filepath.Dir(filepath.Dir(c.Path))
	return &AssetIndexReader{
		container:  c,
		parsed:     parsed,
		objectsDir: filepath.Join(assetsRoot, "objects"),
	}, nil
}

// Container returns the container this reader was opened for.
func (r *AssetIndexReader) Container() models.Container {
	return r.container
}

// Enumerate lists the normalized asset entries in path order.
func (r *AssetIndexReader) Enumerate(ctx context.Context, fn func(Entry) error) error {
	for _, entry := range r.parsed.entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

// Read resolves the entry to its object file and returns its contents.
func (r *AssetIndexReader) Read(entryPath string) ([]byte, error) {
	hash, ok := r.parsed.objects[entryPath]
	if !ok {
		return nil, models.WrapError(models.ErrKindRead,
			fmt.Sprintf("entry not in asset index: %s", entryPath), models.ErrUnknownAsset)
	}
	if len(hash) < 2 {
		return nil, models.Errorf(models.ErrKindRead, "malformed object hash %q", hash)
	}

	objectPath := filepath.Join(r.objectsDir, hash[:2], hash)
	data, err := os.ReadFile(objectPath)
	if err != nil {
		return nil, readErr(r.container, entryPath, err)
	}
	return data, nil
}

// Close is a no-op; parsed indexes stay cached.
func (r *AssetIndexReader) Close() error {
	return nil
}
