// Package gateway is the command surface a presentation layer talks
// to. It owns the session: shared container readers, the snapshot
// cache, the scan engine for the selected launcher root, and the
// export service. Asynchronous results arrive on the event bus.
package gateway

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/craftscan/craftscan/internal/cache"
	"github.com/craftscan/craftscan/internal/config"
	"github.com/craftscan/craftscan/internal/container"
	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/index"
	"github.com/craftscan/craftscan/internal/launcher"
	"github.com/craftscan/craftscan/internal/models"
	"github.com/craftscan/craftscan/internal/scanner"
	"github.com/craftscan/craftscan/internal/services/export"
	"github.com/craftscan/craftscan/internal/services/scan"
	"github.com/craftscan/craftscan/internal/transcode"
)

// Gateway dispatches commands against session state.
type Gateway struct {
	cfg    *config.Config
	logger *events.Logger
	bus    *events.Bus

	pool       *container.ArchivePool
	indexes    *container.IndexCache
	opener     *container.Opener
	snapshots  *cache.Store
	transcoder transcode.Transcoder
	clipboard  export.Clipboard

	mu      sync.Mutex
	root    string
	engine  *scan.Engine
	exports *export.Service
}

// New creates a gateway with its shared infrastructure.
func New(cfg *config.Config, bus *events.Bus, logger *events.Logger) (*Gateway, error) {
	pool, err := container.NewArchivePool(cfg.Scan.ArchivePoolSize)
	if err != nil {
		return nil, err
	}

	indexes, err := container.NewIndexCache(cfg.Scan.ArchivePoolSize)
	if err != nil {
		pool.Close()
		return nil, err
	}

	snapshots, err := cache.NewStore(cfg.Storage.CacheDir, cfg.Scan.CacheMaxBytes, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Gateway{
		cfg:        cfg,
		logger:     logger.WithField("component", "gateway"),
		bus:        bus,
		pool:       pool,
		indexes:    indexes,
		opener:     container.NewOpener(pool, indexes),
		snapshots:  snapshots,
		transcoder: transcode.NewFFmpeg(cfg.Export.FFmpegPath, logger),
	}, nil
}

// SetTranscoder replaces the audio transcoder for sessions created
// afterwards. Tests use this.
func (g *Gateway) SetTranscoder(t transcode.Transcoder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transcoder = t
	if g.exports != nil {
		g.exports.SetTranscoder(t)
	}
}

// SetClipboard replaces the clipboard implementation. Tests use this.
func (g *Gateway) SetClipboard(c export.Clipboard) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clipboard = c
	if g.exports != nil {
		g.exports.SetClipboard(c)
	}
}

// DetectPrismRoots probes the platform launcher locations.
func (g *Gateway) DetectPrismRoots() []launcher.RootCandidate {
	return launcher.DetectRoots()
}

// ListInstances lists the instances under a launcher root.
func (g *Gateway) ListInstances(prismRoot string) ([]launcher.Instance, error) {
	root, err := launcher.ResolveRoot(prismRoot)
	if err != nil {
		return nil, err
	}
	return launcher.ListInstances(root)
}

// StartScan begins a scan for one instance, creating or reusing the
// session bound to the launcher root.
func (g *Gateway) StartScan(ctx context.Context, req StartScanRequest) (StartScanResponse, error) {
	root, err := launcher.ResolveRoot(req.PrismRoot)
	if err != nil {
		return StartScanResponse{}, err
	}

	if _, err := launcher.FindInstance(root, req.InstanceFolder); err != nil {
		return StartScanResponse{}, err
	}

	engine, err := g.session(root)
	if err != nil {
		return StartScanResponse{}, err
	}

	result, err := engine.StartScan(ctx, scan.StartOptions{
		InstanceID: req.InstanceFolder,
		Toggles: models.SourceToggles{
			IncludeVanilla:       req.IncludeVanilla,
			IncludeMods:          req.IncludeMods,
			IncludeResourcepacks: req.IncludeResourcepacks,
		},
		ForceRescan: req.ForceRescan,
	})
	if err != nil {
		return StartScanResponse{}, err
	}

	return StartScanResponse{
		ScanID:         result.ScanID,
		CacheHit:       result.CacheHit,
		RefreshStarted: result.RefreshStarted,
	}, nil
}

// CancelScan cancels a running scan.
func (g *Gateway) CancelScan(scanID string) error {
	engine, err := g.currentEngine()
	if err != nil {
		return err
	}
	return engine.Cancel(scanID)
}

// GetScanStatus returns the status of a known scan.
func (g *Gateway) GetScanStatus(scanID string) (models.ScanStatus, error) {
	engine, err := g.currentEngine()
	if err != nil {
		return models.ScanStatus{}, err
	}
	return engine.Status(scanID)
}

// ListTreeChildren returns the child nodes of a virtual tree node.
func (g *Gateway) ListTreeChildren(scanID, nodeID string) ([]models.TreeNode, error) {
	engine, err := g.scanEngine(scanID)
	if err != nil {
		return nil, err
	}
	return engine.CurrentIndex().Children(nodeID)
}

// SearchAssets runs a paginated filtered search over the committed
// index.
func (g *Gateway) SearchAssets(req SearchRequest) (SearchResponse, error) {
	engine, err := g.scanEngine(req.ScanID)
	if err != nil {
		return SearchResponse{}, err
	}

	total, page := engine.CurrentIndex().Search(index.SearchFilter{
		Query:         req.Query,
		FolderNodeID:  req.FolderNodeID,
		IncludeImages: req.IncludeImages,
		IncludeAudio:  req.IncludeAudio,
		IncludeOther:  req.IncludeOther,
		Offset:        req.Offset,
		Limit:         req.Limit,
	})
	return SearchResponse{Total: total, Assets: page}, nil
}

// GetAssetRecord resolves one asset by id.
func (g *Gateway) GetAssetRecord(scanID, assetID string) (models.AssetRecord, error) {
	engine, err := g.scanEngine(scanID)
	if err != nil {
		return models.AssetRecord{}, err
	}

	rec, ok := engine.Lookup(assetID)
	if !ok {
		return models.AssetRecord{}, models.WrapError(models.ErrKindState,
			"asset "+assetID, models.ErrUnknownAsset)
	}
	return rec, nil
}

// GetAssetPreview serves a bounded base64 preview of one asset.
func (g *Gateway) GetAssetPreview(scanID, assetID string) (PreviewResponse, error) {
	exports, err := g.scanExports(scanID)
	if err != nil {
		return PreviewResponse{}, err
	}

	preview, err := exports.PreviewAsset(assetID)
	if err != nil {
		return PreviewResponse{}, err
	}
	return PreviewResponse{
		Mime:   preview.MimeType,
		Base64: base64.StdEncoding.EncodeToString(preview.Data),
	}, nil
}

// ReconcileAssetIDs maps prior asset ids onto the current index.
func (g *Gateway) ReconcileAssetIDs(scanID string, assetIDs []string) (ReconcileResponse, error) {
	engine, err := g.scanEngine(scanID)
	if err != nil {
		return ReconcileResponse{}, err
	}

	idMap, unknown := engine.ReconcileAssetIDs(assetIDs)
	return ReconcileResponse{IDMap: idMap, UnknownIDs: unknown}, nil
}

// SaveAssets writes assets to a destination directory and blocks until
// the operation finishes. Progress streams on the event bus.
func (g *Gateway) SaveAssets(ctx context.Context, req ExportRequest) (models.ExportResult, error) {
	return g.runExport(ctx, req, models.ExportSave)
}

// CopyAssetsToClipboard stages assets under the temp directory, places
// their paths on the clipboard, and blocks until done.
func (g *Gateway) CopyAssetsToClipboard(ctx context.Context, req ExportRequest) (models.ExportResult, error) {
	return g.runExport(ctx, req, models.ExportCopy)
}

// CancelExport cancels a running export operation.
func (g *Gateway) CancelExport(operationID string) error {
	exports, err := g.currentExports()
	if err != nil {
		return err
	}
	return exports.Cancel(operationID)
}

// Subscribe attaches an event consumer to the session bus.
func (g *Gateway) Subscribe() (<-chan events.Event, func()) {
	return g.bus.Subscribe()
}

// Close tears the session down.
func (g *Gateway) Close() error {
	g.mu.Lock()
	engine := g.engine
	exports := g.exports
	g.engine = nil
	g.exports = nil
	g.mu.Unlock()

	if engine != nil {
		_ = engine.Close()
	}
	if exports != nil {
		_ = exports.Close()
	}
	if err := g.snapshots.Close(); err != nil {
		return err
	}
	g.pool.Close()
	return nil
}

func (g *Gateway) runExport(ctx context.Context, req ExportRequest, kind models.ExportKind) (models.ExportResult, error) {
	exports, err := g.scanExports(req.ScanID)
	if err != nil {
		return models.ExportResult{}, err
	}

	opID, err := exports.Start(ctx, models.ExportRequest{
		OperationID:     req.OperationID,
		Kind:            kind,
		AssetIDs:        req.AssetIDs,
		DestinationPath: req.DestinationDir,
		AudioFormat:     req.AudioFormat,
	})
	if err != nil {
		return models.ExportResult{}, err
	}

	if err := exports.Wait(opID); err != nil {
		return models.ExportResult{}, err
	}
	return exports.Result(opID)
}

// session returns the engine for a launcher root, building a fresh one
// when the root changes.
func (g *Gateway) session(root string) (*scan.Engine, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.engine != nil && g.root == root {
		return g.engine, nil
	}

	if g.engine != nil {
		_ = g.engine.Close()
	}
	if g.exports != nil {
		_ = g.exports.Close()
	}

	engine := scan.NewEngine(
		launcher.NewDiscovery(root, g.logger),
		g.opener,
		scanner.NewExtractor(g.logger),
		g.snapshots,
		g.bus,
		g.cfg.Scan,
		g.logger,
	)

	exports := export.NewService(
		engine,
		g.transcoder,
		g.bus,
		g.cfg.Storage.TempDir,
		g.cfg.Export.PreviewMaxBytes,
		g.logger,
	)
	if g.clipboard != nil {
		exports.SetClipboard(g.clipboard)
	}

	g.root = root
	g.engine = engine
	g.exports = exports
	g.logger.WithField("root", root).Debug("Session bound to launcher root")
	return engine, nil
}

// currentEngine returns the session engine, failing when no scan has
// ever started.
func (g *Gateway) currentEngine() (*scan.Engine, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.engine == nil {
		return nil, models.WrapError(models.ErrKindState, "no scan started", models.ErrNoIndex)
	}
	return g.engine, nil
}

func (g *Gateway) currentExports() (*export.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.exports == nil {
		return nil, models.WrapError(models.ErrKindState, "no scan started", models.ErrNoIndex)
	}
	return g.exports, nil
}

// scanEngine validates the scan id against the session before serving
// index-backed queries.
func (g *Gateway) scanEngine(scanID string) (*scan.Engine, error) {
	engine, err := g.currentEngine()
	if err != nil {
		return nil, err
	}
	if _, err := engine.Status(scanID); err != nil {
		return nil, err
	}
	return engine, nil
}

func (g *Gateway) scanExports(scanID string) (*export.Service, error) {
	if _, err := g.scanEngine(scanID); err != nil {
		return nil, err
	}
	return g.currentExports()
}
