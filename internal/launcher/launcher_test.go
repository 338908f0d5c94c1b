package launcher_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/launcher"
	"github.com/craftscan/craftscan/internal/models"
	"github.com/craftscan/craftscan/test/testutil"
)

func TestValidateRoot(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	assert.True(t, launcher.ValidateRoot(root.Path))

	empty := t.TempDir()
	assert.False(t, launcher.ValidateRoot(empty))

	// instances/ alone is not enough.
	half := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(half, "instances"), 0755))
	assert.False(t, launcher.ValidateRoot(half))
}

func TestResolveRoot(t *testing.T) {
	root := testutil.NewPrismRoot(t)

	resolved, err := launcher.ResolveRoot(root.Path)
	require.NoError(t, err)
	assert.Equal(t, root.Path, resolved)

	_, err = launcher.ResolveRoot(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindConfig, models.KindOf(err))
}

func TestDetectRootsEnvOverride(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	t.Setenv("PRISM_ROOT", root.Path)
	t.Setenv("HOME", t.TempDir())

	candidates := launcher.DetectRoots()
	require.NotEmpty(t, candidates)
	assert.Equal(t, root.Path, candidates[0].Path)
	assert.True(t, candidates[0].Valid)
	assert.True(t, candidates[0].Exists)
	assert.Equal(t, "env", candidates[0].Source)
}

func TestListInstances(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	root.AddInstance("fabric-121", "Zeta Pack", "1.21.1")
	root.AddInstance("vanilla-120", "Alpha World", "1.20.4")

	// A stray directory without mmc-pack.json is skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(root.Path, "instances", "_LAUNCHER_TEMP"), 0755))

	instances, err := launcher.ListInstances(root.Path)
	require.NoError(t, err)
	require.Len(t, instances, 2)

	// Sorted by display name.
	assert.Equal(t, "Alpha World", instances[0].Name)
	assert.Equal(t, "vanilla-120", instances[0].ID)
	assert.Equal(t, "1.20.4", instances[0].MinecraftVersion)
	assert.Equal(t, "Zeta Pack", instances[1].Name)
}

func TestListInstancesNameFallback(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	root.AddInstance("noname", "ignored", "1.21.1")
	require.NoError(t, os.Remove(filepath.Join(root.Path, "instances", "noname", "instance.cfg")))

	instances, err := launcher.ListInstances(root.Path)
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "noname", instances[0].Name)
}

func TestFindInstanceUnknown(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	root.AddInstance("known", "Known", "1.21.1")

	_, err := launcher.FindInstance(root.Path, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInstanceNotFound)
}

func TestDiscoveryContainers(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	inst := root.AddInstance("fabric-121", "Test", "1.21.1")

	root.AddAssetIndex("1.21.1", "17", map[string]string{
		"minecraft/sounds/hit.ogg": "ogg",
	})
	root.AddClientJar("1.21.1", map[string]string{
		"assets/minecraft/textures/block/stone.png": "png",
	})
	root.AddModJar(inst, "beta-mod.jar", map[string]string{"assets/b/x.png": "x"})
	root.AddModJar(inst, "alpha-mod.jar", map[string]string{"assets/a/x.png": "x"})
	root.AddModJar(inst, "old-mod.jar.disabled", map[string]string{"assets/o/x.png": "x"})
	root.AddResourcePackZip(inst, "pack.zip", map[string]string{"assets/p/x.png": "x"})
	root.AddResourcePackDir(inst, "unpacked", map[string]string{"pack.mcmeta": "{}"})
	// A directory without assets/ or pack.mcmeta is not a pack.
	root.AddResourcePackDir(inst, "notapack", map[string]string{"readme.txt": "hi"})

	discovery := launcher.NewDiscovery(root.Path, testutil.NewTestLogger())

	containers, err := discovery.Containers(inst, models.SourceToggles{
		IncludeVanilla:       true,
		IncludeMods:          true,
		IncludeResourcepacks: true,
	})
	require.NoError(t, err)
	require.Len(t, containers, 6)

	// Vanilla first: asset index, then client jar.
	assert.Equal(t, models.ContainerAssetIndex, containers[0].Type)
	assert.Equal(t, models.SourceVanilla, containers[0].SourceType)
	assert.Equal(t, models.ContainerJar, containers[1].Type)

	// Mods sorted by filename, .disabled excluded.
	assert.Equal(t, "alpha-mod.jar", containers[2].SourceName)
	assert.Equal(t, "beta-mod.jar", containers[3].SourceName)

	// Resource packs sorted by name.
	assert.Equal(t, "pack.zip", containers[4].SourceName)
	assert.Equal(t, models.ContainerZip, containers[4].Type)
	assert.Equal(t, "unpacked", containers[5].SourceName)
	assert.Equal(t, models.ContainerDirectory, containers[5].Type)
}

func TestDiscoveryWarnsOnSkippedPackEntries(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	inst := root.AddInstance("fabric-121", "Test", "1.21.1")
	root.AddResourcePackZip(inst, "pack.zip", map[string]string{"assets/p/x.png": "x"})
	root.AddResourcePackDir(inst, "notapack", map[string]string{"readme.txt": "hi"})
	testutil.WriteFile(t, filepath.Join(root.MinecraftDir(inst), "resourcepacks", "stray.txt"), "hi")

	var buf bytes.Buffer
	logger := events.NewTestLogger(events.WarnLevel, "text", &buf)
	discovery := launcher.NewDiscovery(root.Path, logger)

	containers, err := discovery.Containers(inst, models.SourceToggles{IncludeResourcepacks: true})
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, "pack.zip", containers[0].SourceName)

	// Both skipped entries are reported, by path.
	logged := buf.String()
	assert.Contains(t, logged, "notapack")
	assert.Contains(t, logged, "stray.txt")
}

func TestDiscoveryToggles(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	inst := root.AddInstance("fabric-121", "Test", "1.21.1")
	root.AddModJar(inst, "a.jar", map[string]string{"assets/a/x.png": "x"})
	root.AddResourcePackZip(inst, "p.zip", map[string]string{"assets/p/x.png": "x"})

	discovery := launcher.NewDiscovery(root.Path, testutil.NewTestLogger())

	containers, err := discovery.Containers(inst, models.SourceToggles{IncludeMods: true})
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, models.SourceMod, containers[0].SourceType)
}

func TestDiscoveryMissingVanillaPieces(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	inst := root.AddInstance("bare", "Bare", "1.21.1")

	discovery := launcher.NewDiscovery(root.Path, testutil.NewTestLogger())

	// No asset index, no client jar: vanilla contributes nothing.
	containers, err := discovery.Containers(inst, models.SourceToggles{IncludeVanilla: true})
	require.NoError(t, err)
	assert.Empty(t, containers)
}

func TestDiscoveryUnknownInstance(t *testing.T) {
	root := testutil.NewPrismRoot(t)
	discovery := launcher.NewDiscovery(root.Path, testutil.NewTestLogger())

	_, err := discovery.Containers("nope", models.SourceToggles{IncludeMods: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInstanceNotFound)
}
