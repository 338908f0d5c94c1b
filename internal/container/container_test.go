package container_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftscan/craftscan/internal/container"
	"github.com/craftscan/craftscan/internal/models"
	"github.com/craftscan/craftscan/test/testutil"
)

func newOpener(t *testing.T) *container.Opener {
	t.Helper()

	archives, err := container.NewArchivePool(4)
	require.NoError(t, err)
	indexes, err := container.NewIndexCache(4)
	require.NoError(t, err)

	opener := container.NewOpener(archives, indexes)
	t.Cleanup(func() { _ = opener.Close() })
	return opener
}

func collectEntries(t *testing.T, r container.Reader) map[string]int64 {
	t.Helper()

	entries := make(map[string]int64)
	err := r.Enumerate(context.Background(), func(e container.Entry) error {
		entries[e.Path] = e.Size
		return nil
	})
	require.NoError(t, err)
	return entries
}

func TestDirectoryReader(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "pack.mcmeta"), `{"pack":{}}`)
	testutil.WriteFile(t, filepath.Join(dir, "assets/custom/textures/stone.png"), "png-bytes")

	c := models.Container{
		Path:       dir,
		Type:       models.ContainerDirectory,
		SourceType: models.SourceResourcePack,
		SourceName: "MyPack",
	}

	r, err := newOpener(t).Open(c)
	require.NoError(t, err)
	defer r.Close()

	entries := collectEntries(t, r)
	assert.Equal(t, int64(len("png-bytes")), entries["assets/custom/textures/stone.png"])
	assert.Contains(t, entries, "pack.mcmeta")

	data, err := r.Read("assets/custom/textures/stone.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = r.Read("../outside.txt")
	assert.Error(t, err)
}

func TestArchiveReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.jar")
	testutil.WriteZip(t, path, map[string]string{
		"assets/examplemod/sounds/hit.ogg": "ogg-bytes",
		"META-INF/MANIFEST.MF":             "Manifest-Version: 1.0",
	})

	c := models.Container{
		Path:       path,
		Type:       models.ContainerJar,
		SourceType: models.SourceMod,
		SourceName: "mod.jar",
	}

	r, err := newOpener(t).Open(c)
	require.NoError(t, err)
	defer r.Close()

	entries := collectEntries(t, r)
	assert.Len(t, entries, 2)

	data, err := r.Read("assets/examplemod/sounds/hit.ogg")
	require.NoError(t, err)
	assert.Equal(t, "ogg-bytes", string(data))

	_, err = r.Read("assets/missing.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownAsset)
}

func TestArchivePoolReusesHandles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.zip")
	testutil.WriteZip(t, path, map[string]string{"assets/ns/a.png": "a"})

	pool, err := container.NewArchivePool(2)
	require.NoError(t, err)
	defer pool.Close()

	zr1, release1, err := pool.Acquire(path)
	require.NoError(t, err)
	zr2, release2, err := pool.Acquire(path)
	require.NoError(t, err)

	assert.Same(t, zr1, zr2)
	release1()
	release2()
}

func TestArchivePoolEviction(t *testing.T) {
	dir := t.TempDir()

	pool, err := container.NewArchivePool(2)
	require.NoError(t, err)
	defer pool.Close()

	var paths []string
	for i := 0; i < 4; i++ {
		path := filepath.Join(dir, fmt.Sprintf("mod-%d.jar", i))
		testutil.WriteZip(t, path, map[string]string{"a.txt": "a"})
		paths = append(paths, path)
	}

	// Churn through more archives than the pool holds; borrowed handles
	// must stay readable even after eviction.
	zr, release, err := pool.Acquire(paths[0])
	require.NoError(t, err)

	for _, path := range paths[1:] {
		_, r, err := pool.Acquire(path)
		require.NoError(t, err)
		r()
	}

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	rc.Close()
	release()
}

func TestAssetIndexReader(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	indexPath := root.AddAssetIndex("1.21.1", "17", map[string]string{
		"minecraft/sounds/mob/zombie/hurt1.ogg": "zombie-hurt",
		"minecraft/lang/en_us.json":             `{"key":"value"}`,
		"icons/icon_16x16.png":                  "icon-bytes",
	})

	c := models.Container{
		Path:       indexPath,
		Type:       models.ContainerAssetIndex,
		SourceType: models.SourceVanilla,
		SourceName: "minecraft",
	}

	r, err := newOpener(t).Open(c)
	require.NoError(t, err)
	defer r.Close()

	entries := collectEntries(t, r)
	assert.Len(t, entries, 3)
	// Object paths are normalized under assets/; keys without a
	// namespace land in the minecraft namespace.
	assert.Contains(t, entries, "assets/minecraft/sounds/mob/zombie/hurt1.ogg")
	assert.Contains(t, entries, "assets/minecraft/icons/icon_16x16.png")

	data, err := r.Read("assets/minecraft/sounds/mob/zombie/hurt1.ogg")
	require.NoError(t, err)
	assert.Equal(t, "zombie-hurt", string(data))

	data, err = r.Read("assets/minecraft/icons/icon_16x16.png")
	require.NoError(t, err)
	assert.Equal(t, "icon-bytes", string(data))

	_, err = r.Read("assets/icons/icon_16x16.png")
	assert.Error(t, err, "the raw un-namespaced path is not addressable")

	_, err = r.Read("assets/minecraft/unknown.ogg")
	assert.Error(t, err)
}

func TestAssetIndexEnumerationIsSorted(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	indexPath := root.AddAssetIndex("1.21.1", "17", map[string]string{
		"minecraft/b.ogg": "b",
		"minecraft/a.ogg": "a",
		"minecraft/c.ogg": "c",
	})

	c := models.Container{Path: indexPath, Type: models.ContainerAssetIndex}

	r, err := newOpener(t).Open(c)
	require.NoError(t, err)
	defer r.Close()

	var order []string
	err = r.Enumerate(context.Background(), func(e container.Entry) error {
		order = append(order, e.Path)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"assets/minecraft/a.ogg",
		"assets/minecraft/b.ogg",
		"assets/minecraft/c.ogg",
	}, order)
}

func TestOpenerRejectsUnknownType(t *testing.T) {
	_, err := newOpener(t).Open(models.Container{Type: "tarball"})
	require.Error(t, err)
	assert.Equal(t, models.ErrKindContainer, models.KindOf(err))
}
