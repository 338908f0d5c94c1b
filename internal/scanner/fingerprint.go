package scanner

import (
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/craftscan/craftscan/internal/models"
)

// Fingerprint computes the invalidation token of a container. Archive
// and asset-index containers fingerprint as a stat tuple; directories
// digest their sorted entry listing since the directory mtime alone
// does not reflect nested changes.
func Fingerprint(c models.Container) (models.ContainerFingerprint, error) {
	info, err := os.Stat(c.Path)
	if err != nil {
		return models.ContainerFingerprint{}, models.WrapError(
			models.ErrKindContainer, "stat container", err)
	}

	fp := models.ContainerFingerprint{
		Path:           c.Path,
		Type:           c.Type,
		Size:           info.Size(),
		ModifiedTimeNs: info.ModTime().UnixNano(),
	}

	if c.Type == models.ContainerDirectory {
		hash, err := directoryHash(c.Path)
		if err != nil {
			return models.ContainerFingerprint{}, err
		}
		fp.ContentHash = hash
	} else if fp.ModifiedTimeNs == 0 {
		// A zero mtime makes the stat tuple ambiguous; fall back to
		// hashing the file contents.
		hash, err := fileHash(c.Path)
		if err != nil {
			return models.ContainerFingerprint{}, err
		}
		fp.ContentHash = hash
	}

	return fp, nil
}

// directoryHash digests the sorted (path, size, mtime) listing of a
// directory tree.
func directoryHash(root string) (string, error) {
	type line struct {
		path  string
		size  int64
		mtime int64
	}

	var lines []line
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		lines = append(lines, line{
			path:  filepath.ToSlash(rel),
			size:  info.Size(),
			mtime: info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return "", models.WrapError(models.ErrKindContainer, "walk container for fingerprint", err)
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].path < lines[j].path })

	h := fnv.New64a()
	for _, l := range lines {
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", l.path, l.size, l.mtime)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// fileHash digests file contents.
func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", models.WrapError(models.ErrKindContainer, "hash container", err)
	}
	h := fnv.New64a()
	_, _ = h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
