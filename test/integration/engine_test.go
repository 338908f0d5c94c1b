package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftscan/craftscan/internal/client"
	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/gateway"
	"github.com/craftscan/craftscan/internal/models"
	"github.com/craftscan/craftscan/test/testutil"
)

type memClipboard struct {
	mu   sync.Mutex
	text string
}

func (c *memClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

func (c *memClipboard) contents() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

func newClient(t *testing.T) (*client.Client, *memClipboard) {
	t.Helper()

	cfg := testutil.TestConfigWithDir(t.TempDir())
	logger := testutil.NewTestLogger()

	app, err := client.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	clip := &memClipboard{}
	app.Gateway.SetClipboard(clip)
	return app, clip
}

func buildInstance(t *testing.T) *testutil.PrismRoot {
	t.Helper()

	root := testutil.NewPrismRoot(t)
	root.AddInstance("fabric-121", "Fabric 1.21", "1.21")
	root.AddClientJar("1.21", map[string]string{
		"assets/minecraft/textures/block/stone.png": "stone-bytes",
	})
	root.AddModJar("fabric-121", "gems.jar", map[string]string{
		"assets/gems/textures/item/ruby.png": "ruby-bytes",
		"assets/gems/sounds/items/shine.ogg": "shine-bytes",
	})
	root.AddResourcePackZip("fabric-121", "retro.zip", map[string]string{
		"assets/minecraft/textures/block/dirt.png": "retro-dirt",
	})
	return root
}

func scanToCompletion(t *testing.T, app *client.Client, root *testutil.PrismRoot, force bool) string {
	t.Helper()

	resp, err := app.Gateway.StartScan(context.Background(), gateway.StartScanRequest{
		PrismRoot:            root.Path,
		InstanceFolder:       "fabric-121",
		IncludeVanilla:       true,
		IncludeMods:          true,
		IncludeResourcepacks: true,
		ForceRescan:          force,
	})
	require.NoError(t, err)

	testutil.WaitForCondition(t, func() bool {
		status, err := app.Gateway.GetScanStatus(resp.ScanID)
		return err == nil && status.Lifecycle == models.LifecycleCompleted && !status.IsRefreshing
	}, 15*time.Second, "scan did not complete")

	return resp.ScanID
}

// searchAll spans every asset kind.
func searchAll(scanID, query string) gateway.SearchRequest {
	return gateway.SearchRequest{
		ScanID:        scanID,
		Query:         query,
		IncludeImages: true,
		IncludeAudio:  true,
		IncludeOther:  true,
	}
}

// The full path a desktop frontend takes: scan, browse, search, preview,
// then export, with events streaming throughout.
func TestScanSearchExportRoundTrip(t *testing.T) {
	app, clip := newClient(t)
	root := buildInstance(t)

	eventCh, cancel := app.Events()
	defer cancel()

	scanID := scanToCompletion(t, app, root, false)

	// All three source families landed in the index.
	search, err := app.Gateway.SearchAssets(searchAll(scanID, ""))
	require.NoError(t, err)
	assert.Equal(t, 4, search.Total)

	families, err := app.Gateway.ListTreeChildren(scanID, "")
	require.NoError(t, err)
	require.Len(t, families, 3)

	// Preview an image asset.
	rubySearch, err := app.Gateway.SearchAssets(searchAll(scanID, "ruby"))
	require.NoError(t, err)
	require.Len(t, rubySearch.Assets, 1)

	preview, err := app.Gateway.GetAssetPreview(scanID, rubySearch.Assets[0].AssetID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", preview.Mime)

	// Save to a destination directory.
	dest := t.TempDir()
	result, err := app.Gateway.SaveAssets(context.Background(), gateway.ExportRequest{
		ScanID:         scanID,
		AssetIDs:       []string{rubySearch.Assets[0].AssetID},
		DestinationDir: dest,
		AudioFormat:    models.AudioOriginal,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	data, err := os.ReadFile(filepath.Join(dest, "mods", "gems.jar", "gems", "textures", "item", "ruby.png"))
	require.NoError(t, err)
	assert.Equal(t, "ruby-bytes", string(data))

	// Copy staging lands on the clipboard.
	copied, err := app.Gateway.CopyAssetsToClipboard(context.Background(), gateway.ExportRequest{
		ScanID:      scanID,
		AssetIDs:    []string{rubySearch.Assets[0].AssetID},
		AudioFormat: models.AudioOriginal,
	})
	require.NoError(t, err)
	require.Len(t, copied.OutputFiles, 1)
	assert.Equal(t, copied.OutputFiles[0], clip.contents())

	// Scan and export lifecycle events arrived on the bus.
	topics := drainTopics(eventCh)
	assert.Contains(t, topics, events.TopicScanCompleted)
	assert.Contains(t, topics, events.TopicExportCompleted)
}

func TestSecondScanServesFromCache(t *testing.T) {
	app, _ := newClient(t)
	root := buildInstance(t)

	scanToCompletion(t, app, root, false)

	resp, err := app.Gateway.StartScan(context.Background(), gateway.StartScanRequest{
		PrismRoot:            root.Path,
		InstanceFolder:       "fabric-121",
		IncludeVanilla:       true,
		IncludeMods:          true,
		IncludeResourcepacks: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.CacheHit)
	assert.True(t, resp.RefreshStarted)

	// The snapshot index answers queries before the refresh finishes.
	search, err := app.Gateway.SearchAssets(searchAll(resp.ScanID, ""))
	require.NoError(t, err)
	assert.Equal(t, 4, search.Total)
}

func TestRescanAfterModChange(t *testing.T) {
	app, _ := newClient(t)
	root := buildInstance(t)

	scanToCompletion(t, app, root, false)

	root.AddModJar("fabric-121", "extras.jar", map[string]string{
		"assets/extras/textures/item/coin.png": "coin-bytes",
	})

	scanID := scanToCompletion(t, app, root, true)

	search, err := app.Gateway.SearchAssets(searchAll(scanID, "coin"))
	require.NoError(t, err)
	assert.Equal(t, 1, search.Total)
}

func drainTopics(ch <-chan events.Event) []string {
	var topics []string
	for {
		select {
		case evt := <-ch:
			topics = append(topics, evt.Topic)
		case <-time.After(250 * time.Millisecond):
			return topics
		}
	}
}
