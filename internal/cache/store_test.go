package cache_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftscan/craftscan/internal/cache"
	"github.com/craftscan/craftscan/internal/models"
	"github.com/craftscan/craftscan/test/testutil"
)

var allSources = models.SourceToggles{
	IncludeVanilla:       true,
	IncludeMods:          true,
	IncludeResourcepacks: true,
}

func newStore(t *testing.T, maxBytes int64) *cache.Store {
	t.Helper()

	store, err := cache.NewStore(t.TempDir(), maxBytes, testutil.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func snapshotFor(instanceID string, records int) *cache.Snapshot {
	snap := &cache.Snapshot{
		InstanceID: instanceID,
		Sources:    allSources.Normalized(),
		Fingerprints: []models.ContainerFingerprint{
			{Path: "/mods/a.jar", Type: models.ContainerJar, Size: 10, ModifiedTimeNs: 1},
		},
	}
	for i := 0; i < records; i++ {
		relPath := fmt.Sprintf("textures/t%d.png", i)
		snap.Records = append(snap.Records, models.AssetRecord{
			AssetID:           models.AssetID("/mods/a.jar", "assets/ns/"+relPath),
			Key:               models.AssetKey("a.jar", "ns", relPath),
			SourceType:        models.SourceMod,
			SourceName:        "a.jar",
			Namespace:         "ns",
			RelativeAssetPath: relPath,
			Extension:         "png",
			IsImage:           true,
			ContainerPath:     "/mods/a.jar",
			ContainerType:     models.ContainerJar,
			EntryPath:         "assets/ns/" + relPath,
		})
	}
	return snap
}

func TestSaveAndLoad(t *testing.T) {
	store := newStore(t, 1<<20)

	saved := snapshotFor("inst-1", 3)
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load("inst-1", allSources)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, cache.SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, "inst-1", loaded.InstanceID)
	assert.Len(t, loaded.Records, 3)
	assert.Equal(t, saved.Records[0].AssetID, loaded.Records[0].AssetID)
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestLoadMiss(t *testing.T) {
	store := newStore(t, 1<<20)

	loaded, err := store.Load("unknown", allSources)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSnapshotKeyedBySources(t *testing.T) {
	store := newStore(t, 1<<20)

	require.NoError(t, store.Save(snapshotFor("inst-1", 1)))

	// Same instance, different toggle set: miss.
	loaded, err := store.Load("inst-1", models.SourceToggles{IncludeMods: true})
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCorruptSnapshotIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewStore(dir, 1<<20, testutil.NewTestLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(snapshotFor("inst-1", 1)))

	// Corrupt the snapshot file in place.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	corrupted := false
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "scan-") && strings.HasSuffix(entry.Name(), ".json") {
			require.NoError(t, os.WriteFile(filepath.Join(dir, entry.Name()), []byte("{not json"), 0600))
			corrupted = true
		}
	}
	require.True(t, corrupted)

	loaded, err := store.Load("inst-1", allSources)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// The corrupt file is gone.
	loaded, err = store.Load("inst-1", allSources)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLRUEviction(t *testing.T) {
	// Cap small enough that only two snapshots fit.
	one := snapshotFor("size-probe", 20)
	store := newStore(t, 5*snapshotSize(t, one)/2)

	require.NoError(t, store.Save(snapshotFor("inst-a", 20)))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Save(snapshotFor("inst-b", 20)))
	time.Sleep(2 * time.Millisecond)

	// Touch inst-a so inst-b becomes the eviction candidate.
	loaded, err := store.Load("inst-a", allSources)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, store.Save(snapshotFor("inst-c", 20)))

	loadedB, err := store.Load("inst-b", allSources)
	require.NoError(t, err)
	assert.Nil(t, loadedB, "least recently used snapshot should be evicted")

	loadedC, err := store.Load("inst-c", allSources)
	require.NoError(t, err)
	assert.NotNil(t, loadedC)
}

func snapshotSize(t *testing.T, snap *cache.Snapshot) int64 {
	t.Helper()

	dir := t.TempDir()
	store, err := cache.NewStore(dir, 1<<30, testutil.NewTestLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(snap))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "scan-") {
			info, err := entry.Info()
			require.NoError(t, err)
			return info.Size()
		}
	}
	t.Fatal("snapshot file not found")
	return 0
}

func TestInvalidate(t *testing.T) {
	store := newStore(t, 1<<20)

	require.NoError(t, store.Save(snapshotFor("inst-1", 1)))
	store.Invalidate("inst-1", allSources)

	loaded, err := store.Load("inst-1", allSources)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSnapshotHelpers(t *testing.T) {
	snap := snapshotFor("inst-1", 2)

	fp, ok := snap.FingerprintFor("/mods/a.jar")
	require.True(t, ok)
	assert.Equal(t, int64(10), fp.Size)

	_, ok = snap.FingerprintFor("/mods/missing.jar")
	assert.False(t, ok)

	records := snap.RecordsFor("/mods/a.jar")
	assert.Len(t, records, 2)
	assert.Empty(t, snap.RecordsFor("/mods/other.jar"))
}
