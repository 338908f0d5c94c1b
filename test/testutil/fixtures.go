package testutil

import (
	"archive/zip"
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/craftscan/craftscan/internal/events"
)

// NewTestLogger creates a logger for testing.
func NewTestLogger() *events.Logger {
	var buf bytes.Buffer
	return events.NewTestLogger(events.DebugLevel, "json", &buf)
}

// ZipBytes builds an in-memory zip archive from a path -> content map.
func ZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteZip writes a zip archive to disk.
func WriteZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, ZipBytes(t, files), 0644))
}

// WriteFile writes a file creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// PrismRoot builds a minimal valid launcher root under a temp dir.
type PrismRoot struct {
	t    *testing.T
	Path string
}

// NewPrismRoot creates a launcher root with the directories the root
// validator requires.
func NewPrismRoot(t *testing.T) *PrismRoot {
	t.Helper()

	root := filepath.Join(t.TempDir(), "PrismLauncher")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "instances"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "libraries"), 0755))
	return &PrismRoot{t: t, Path: root}
}

// AddInstance creates an instance directory with mmc-pack.json and
// instance.cfg, returning the instance id (directory name).
func (r *PrismRoot) AddInstance(id, displayName, mcVersion string) string {
	r.t.Helper()

	instDir := filepath.Join(r.Path, "instances", id)
	require.NoError(r.t, os.MkdirAll(filepath.Join(instDir, ".minecraft"), 0755))

	pack := map[string]interface{}{
		"formatVersion": 1,
		"components": []map[string]interface{}{
			{"uid": "net.minecraft", "version": mcVersion},
			{"uid": "net.fabricmc.fabric-loader", "version": "0.16.0"},
		},
	}
	data, err := json.MarshalIndent(pack, "", "  ")
	require.NoError(r.t, err)
	WriteFile(r.t, filepath.Join(instDir, "mmc-pack.json"), string(data))

	cfg := fmt.Sprintf("[General]\nConfigVersion=1.2\nInstanceType=OneSix\nname=%s\n", displayName)
	WriteFile(r.t, filepath.Join(instDir, "instance.cfg"), cfg)

	return id
}

// MinecraftDir returns the .minecraft directory of an instance.
func (r *PrismRoot) MinecraftDir(instanceID string) string {
	return filepath.Join(r.Path, "instances", instanceID, ".minecraft")
}

// AddModJar writes a mod archive into the instance mods directory.
func (r *PrismRoot) AddModJar(instanceID, name string, files map[string]string) string {
	r.t.Helper()

	path := filepath.Join(r.MinecraftDir(instanceID), "mods", name)
	WriteZip(r.t, path, files)
	return path
}

// AddResourcePackZip writes a resource pack archive.
func (r *PrismRoot) AddResourcePackZip(instanceID, name string, files map[string]string) string {
	r.t.Helper()

	path := filepath.Join(r.MinecraftDir(instanceID), "resourcepacks", name)
	WriteZip(r.t, path, files)
	return path
}

// AddResourcePackDir writes an unpacked resource pack directory.
func (r *PrismRoot) AddResourcePackDir(instanceID, name string, files map[string]string) string {
	r.t.Helper()

	dir := filepath.Join(r.MinecraftDir(instanceID), "resourcepacks", name)
	for rel, content := range files {
		WriteFile(r.t, filepath.Join(dir, filepath.FromSlash(rel)), content)
	}
	return dir
}

// AddClientJar writes the vanilla client jar for a version.
func (r *PrismRoot) AddClientJar(mcVersion string, files map[string]string) string {
	r.t.Helper()

	path := filepath.Join(r.Path, "libraries", "com", "mojang", "minecraft",
		mcVersion, fmt.Sprintf("minecraft-%s-client.jar", mcVersion))
	WriteZip(r.t, path, files)
	return path
}

// AddAssetIndex writes the version meta, the asset index file, and a
// content-addressed object for every listed asset. Keys are object
// paths without the assets/ prefix, e.g. "minecraft/sounds/hit.ogg".
func (r *PrismRoot) AddAssetIndex(mcVersion, indexID string, objects map[string]string) string {
	r.t.Helper()

	meta := map[string]interface{}{
		"assetIndex": map[string]interface{}{"id": indexID},
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	require.NoError(r.t, err)
	WriteFile(r.t, filepath.Join(r.Path, "meta", "net.minecraft", mcVersion+".json"), string(metaData))

	index := map[string]interface{}{"objects": map[string]interface{}{}}
	objs := index["objects"].(map[string]interface{})
	for key, content := range objects {
		sum := sha1.Sum([]byte(content))
		hash := hex.EncodeToString(sum[:])
		objs[key] = map[string]interface{}{"hash": hash, "size": len(content)}

		objPath := filepath.Join(r.Path, "assets", "objects", hash[:2], hash)
		WriteFile(r.t, objPath, content)
	}

	indexData, err := json.MarshalIndent(index, "", "  ")
	require.NoError(r.t, err)

	indexPath := filepath.Join(r.Path, "assets", "indexes", indexID+".json")
	WriteFile(r.t, indexPath, string(indexData))
	return indexPath
}
