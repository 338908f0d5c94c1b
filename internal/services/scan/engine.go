// Package scan orchestrates container discovery, extraction, caching,
// and index commits.
package scan

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/craftscan/craftscan/internal/cache"
	"github.com/craftscan/craftscan/internal/config"
	"github.com/craftscan/craftscan/internal/container"
	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/index"
	"github.com/craftscan/craftscan/internal/launcher"
	"github.com/craftscan/craftscan/internal/models"
	"github.com/craftscan/craftscan/internal/scanner"
)

// Engine runs scans and owns the committed index. Searches and reads
// always see the last committed index; a running scan or refresh swaps
// a fresh index in only on completion.
type Engine struct {
	discovery *launcher.Discovery
	opener    *container.Opener
	extractor *scanner.Extractor
	snapshots *cache.Store
	bus       *events.Bus
	logger    *events.Logger
	cfg       config.ScanConfig

	index atomic.Pointer[index.Index]

	mu      sync.Mutex
	active  *scanHandle
	scans   map[string]*scanHandle
	aliases map[string]string // stale asset id -> current id
}

// scanHandle tracks one scan's lifecycle and counters.
type scanHandle struct {
	id         string
	instanceID string
	toggles    models.SourceToggles
	refreshing bool
	snapshot   *cache.Snapshot

	cancel context.CancelFunc
	done   chan struct{}

	lifecycle atomic.Value // models.ScanLifecycle
	phase     atomic.Value // models.ScanPhase
	scanned   atomic.Int64
	total     atomic.Int64
	assets    atomic.Int64
	errMsg    atomic.Value // string
}

func (h *scanHandle) status() models.ScanStatus {
	status := models.ScanStatus{
		ScanID:            h.id,
		Lifecycle:         h.lifecycle.Load().(models.ScanLifecycle),
		IsRefreshing:      h.refreshing,
		ScannedContainers: int(h.scanned.Load()),
		TotalContainers:   int(h.total.Load()),
		AssetCount:        int(h.assets.Load()),
	}
	if msg, ok := h.errMsg.Load().(string); ok {
		status.Error = msg
	}
	return status
}

// NewEngine creates a scan engine.
func NewEngine(
	discovery *launcher.Discovery,
	opener *container.Opener,
	extractor *scanner.Extractor,
	snapshots *cache.Store,
	bus *events.Bus,
	cfg config.ScanConfig,
	logger *events.Logger,
) *Engine {
	e := &Engine{
		discovery: discovery,
		opener:    opener,
		extractor: extractor,
		snapshots: snapshots,
		bus:       bus,
		logger:    logger.WithField("component", "scan_engine"),
		cfg:       cfg,
		scans:     make(map[string]*scanHandle),
		aliases:   make(map[string]string),
	}
	e.index.Store(index.Empty())
	return e
}

// CurrentIndex returns the last committed index. Never nil.
func (e *Engine) CurrentIndex() *index.Index {
	return e.index.Load()
}

// Lookup resolves an asset id against the committed index, following
// the alias map for ids minted by earlier scans.
func (e *Engine) Lookup(assetID string) (models.AssetRecord, bool) {
	ix := e.CurrentIndex()
	if rec, ok := ix.Get(assetID); ok {
		return rec, true
	}

	e.mu.Lock()
	alias, ok := e.aliases[assetID]
	e.mu.Unlock()
	if !ok {
		return models.AssetRecord{}, false
	}
	return ix.Get(alias)
}

// ReconcileAssetIDs maps prior asset ids onto the committed index.
// Ids that survived map to themselves; ids whose structural identity
// survived under a new container map to the successor; the rest are
// reported unknown.
func (e *Engine) ReconcileAssetIDs(assetIDs []string) (map[string]string, []string) {
	idMap := make(map[string]string, len(assetIDs))
	var unknown []string
	for _, id := range assetIDs {
		if rec, ok := e.Lookup(id); ok {
			idMap[id] = rec.AssetID
		} else {
			unknown = append(unknown, id)
		}
	}
	return idMap, unknown
}

// Close cancels any running scan and waits for it to stop.
func (e *Engine) Close() error {
	e.supersedeActive()
	return nil
}

// ReadAsset returns the raw bytes of an asset.
func (e *Engine) ReadAsset(assetID string) ([]byte, error) {
	rec, ok := e.Lookup(assetID)
	if !ok {
		return nil, models.WrapError(models.ErrKindRead, "asset "+assetID, models.ErrUnknownAsset)
	}

	r, err := e.opener.Open(models.Container{
		Path:       rec.ContainerPath,
		Type:       rec.ContainerType,
		SourceType: rec.SourceType,
		SourceName: rec.SourceName,
	})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.Read(rec.EntryPath)
}

// StartOptions parameterizes one scan.
type StartOptions struct {
	InstanceID  string
	Toggles     models.SourceToggles
	ForceRescan bool
}

// StartResult is the synchronous reply to a scan start. On a cache hit
// the committed index already serves the cached snapshot and the scan
// continues as a background refresh.
type StartResult struct {
	ScanID         string `json:"scanId"`
	CacheHit       bool   `json:"cacheHit"`
	RefreshStarted bool   `json:"refreshStarted"`
}

// StartScan begins an asynchronous scan of one instance. A running scan
// is superseded: it is cancelled and waited for (bounded by the cancel
// grace) before the new scan starts.
func (e *Engine) StartScan(ctx context.Context, opts StartOptions) (StartResult, error) {
	if !opts.Toggles.Any() {
		return StartResult{}, models.NewError(models.ErrKindConfig, "no source families enabled")
	}

	e.supersedeActive()

	var snapshot *cache.Snapshot
	if opts.ForceRescan {
		e.snapshots.Invalidate(opts.InstanceID, opts.Toggles)
	} else {
		var err error
		snapshot, err = e.snapshots.Load(opts.InstanceID, opts.Toggles)
		if err != nil {
			// Cache trouble downgrades to a miss.
			e.logger.WithError(err).Warn("Snapshot load failed, scanning from scratch")
			snapshot = nil
		}
	}

	// The scan outlives the request that started it; only Cancel or a
	// superseding scan stops it.
	scanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &scanHandle{
		id:         uuid.NewString(),
		instanceID: opts.InstanceID,
		toggles:    opts.Toggles,
		refreshing: snapshot != nil,
		snapshot:   snapshot,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.lifecycle.Store(models.LifecycleScanning)
	h.phase.Store(models.PhaseEstimating)

	e.mu.Lock()
	e.active = h
	e.scans[h.id] = h
	e.mu.Unlock()

	result := StartResult{ScanID: h.id}
	if snapshot != nil {
		// Serve the cached records immediately; the background pass
		// reconciles filesystem changes.
		e.swapIndex(snapshot.Records)
		result.CacheHit = true
		result.RefreshStarted = true
	}

	go e.run(scanCtx, h)
	return result, nil
}

// supersedeActive cancels the running scan, if any, and waits up to the
// grace period for it to stop. The new scan proceeds regardless.
func (e *Engine) supersedeActive() {
	e.mu.Lock()
	active := e.active
	e.active = nil
	e.mu.Unlock()

	if active == nil {
		return
	}
	select {
	case <-active.done:
		return
	default:
	}

	active.cancel()
	select {
	case <-active.done:
	case <-time.After(e.grace()):
		e.logger.WithField("scan_id", active.id).Warn("Superseded scan did not stop within grace period")
	}
}

func (e *Engine) grace() time.Duration {
	if e.cfg.CancelGrace > 0 {
		return e.cfg.CancelGrace
	}
	return 6 * time.Second
}

// Status returns the status of a known scan.
func (e *Engine) Status(scanID string) (models.ScanStatus, error) {
	e.mu.Lock()
	h, ok := e.scans[scanID]
	e.mu.Unlock()
	if !ok {
		return models.ScanStatus{}, models.WrapError(models.ErrKindState, "scan "+scanID, models.ErrUnknownScan)
	}
	return h.status(), nil
}

// Cancel requests cancellation of a running scan and waits up to the
// configured grace period for workers to wind down.
func (e *Engine) Cancel(scanID string) error {
	e.mu.Lock()
	h, ok := e.scans[scanID]
	e.mu.Unlock()
	if !ok {
		return models.WrapError(models.ErrKindState, "scan "+scanID, models.ErrUnknownScan)
	}

	h.cancel()

	select {
	case <-h.done:
	case <-time.After(e.grace()):
		e.logger.WithField("scan_id", scanID).Warn("Scan did not stop within grace period")
	}
	return nil
}

// Wait blocks until a scan finishes.
func (e *Engine) Wait(scanID string) error {
	e.mu.Lock()
	h, ok := e.scans[scanID]
	e.mu.Unlock()
	if !ok {
		return models.WrapError(models.ErrKindState, "scan "+scanID, models.ErrUnknownScan)
	}
	<-h.done
	return nil
}

// run executes the scan on its own goroutine.
func (e *Engine) run(ctx context.Context, h *scanHandle) {
	defer h.cancel()
	defer close(h.done)

	logger := e.logger.WithFields(map[string]interface{}{
		"scan_id":  h.id,
		"instance": h.instanceID,
		"sources":  h.toggles.Normalized(),
	})
	logger.Info("Starting scan")
	start := time.Now()

	records, fingerprints, err := e.execute(ctx, h)

	switch {
	case ctx.Err() != nil:
		h.lifecycle.Store(models.LifecycleCancelled)
		logger.Info("Scan cancelled")
		e.bus.Publish(events.TopicScanCompleted, models.ScanCompleted{
			ScanID:     h.id,
			Lifecycle:  models.LifecycleCancelled,
			AssetCount: int(h.assets.Load()),
		})

	case err != nil:
		h.lifecycle.Store(models.LifecycleError)
		h.errMsg.Store(err.Error())
		logger.WithError(err).Error("Scan failed")
		// The error event is the terminal frame for this scan.
		e.bus.Publish(events.TopicScanError, models.ScanFailed{ScanID: h.id, Error: err.Error()})

	default:
		e.commit(h, records, fingerprints)
		h.lifecycle.Store(models.LifecycleCompleted)
		logger.WithFields(map[string]interface{}{
			"assets":   len(records),
			"duration": time.Since(start),
		}).Info("Scan completed")
		e.bus.Publish(events.TopicScanCompleted, models.ScanCompleted{
			ScanID:     h.id,
			Lifecycle:  models.LifecycleCompleted,
			AssetCount: len(records),
		})
	}
}

// execute discovers containers, reuses cached records for unchanged
// ones, and extracts the rest with a bounded worker pool. Results keep
// discovery order regardless of worker completion order.
func (e *Engine) execute(ctx context.Context, h *scanHandle) ([]models.AssetRecord, []models.ContainerFingerprint, error) {
	h.phase.Store(models.PhaseEstimating)
	e.publishProgress(h, "")

	containers, err := e.discovery.Containers(h.instanceID, h.toggles)
	if err != nil {
		return nil, nil, err
	}
	h.total.Store(int64(len(containers)))

	snapshot := h.snapshot

	if h.refreshing {
		h.phase.Store(models.PhaseRefreshing)
	} else {
		h.phase.Store(models.PhaseScanning)
	}
	e.publishProgress(h, "")

	results := make([][]models.AssetRecord, len(containers))
	fingerprints := make([]models.ContainerFingerprint, len(containers))

	throttle := newProgressThrottle(e.cfg.ProgressInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for i, c := range containers {
		i, c := i, c
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			fp, err := scanner.Fingerprint(c)
			if err != nil {
				// A container that vanished mid-scan is skipped.
				e.logger.WithError(err).WithField("container", c.Path).Warn("Skipping unreadable container")
				h.scanned.Add(1)
				return nil
			}
			fingerprints[i] = fp

			if snapshot != nil {
				if cached, ok := snapshot.FingerprintFor(c.Path); ok && cached.Equal(fp) {
					results[i] = snapshot.RecordsFor(c.Path)
					h.assets.Add(int64(len(results[i])))
					h.scanned.Add(1)
					if throttle.ready() {
						e.publishProgress(h, c.SourceName)
					}
					return nil
				}
			}

			r, err := e.opener.Open(c)
			if err != nil {
				e.logger.WithError(err).WithField("container", c.Path).Warn("Skipping unopenable container")
				h.scanned.Add(1)
				return nil
			}
			defer r.Close()

			records, err := e.extractor.Extract(gctx, r)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.WithError(err).WithField("container", c.Path).Warn("Skipping failed container")
				h.scanned.Add(1)
				return nil
			}

			results[i] = records
			h.assets.Add(int64(len(records)))
			h.scanned.Add(1)
			if throttle.ready() {
				e.publishProgress(h, c.SourceName)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	e.publishProgress(h, "")

	var records []models.AssetRecord
	for _, chunk := range results {
		records = append(records, chunk...)
	}

	var validFPs []models.ContainerFingerprint
	for _, fp := range fingerprints {
		if fp.Path != "" {
			validFPs = append(validFPs, fp)
		}
	}

	return records, validFPs, nil
}

// swapIndex replaces the committed index and records aliases for ids
// that moved to a new container path.
func (e *Engine) swapIndex(records []models.AssetRecord) {
	prev := e.index.Load()
	next := index.New(records)

	newAliases := index.AliasMap(prev, next)

	e.mu.Lock()
	for old, current := range e.aliases {
		if remapped, ok := newAliases[current]; ok {
			e.aliases[old] = remapped
		}
	}
	for old, current := range newAliases {
		e.aliases[old] = current
	}
	e.mu.Unlock()

	e.index.Store(next)
}

// commit swaps in the new index and persists the snapshot. Cancelled
// scans never reach here.
func (e *Engine) commit(h *scanHandle, records []models.AssetRecord, fingerprints []models.ContainerFingerprint) {
	e.swapIndex(records)

	snapshot := &cache.Snapshot{
		InstanceID:   h.instanceID,
		Sources:      h.toggles.Normalized(),
		Fingerprints: fingerprints,
		Records:      records,
	}
	if err := e.snapshots.Save(snapshot); err != nil {
		e.logger.WithError(err).Warn("Failed to persist scan snapshot")
	}
}

func (e *Engine) publishProgress(h *scanHandle, currentSource string) {
	e.bus.Publish(events.TopicScanProgress, models.ScanProgress{
		ScanID:            h.id,
		ScannedContainers: int(h.scanned.Load()),
		TotalContainers:   int(h.total.Load()),
		AssetCount:        int(h.assets.Load()),
		Phase:             h.phase.Load().(models.ScanPhase),
		CurrentSource:     currentSource,
	})
}

func (e *Engine) workers() int {
	if e.cfg.MaxWorkers > 0 {
		return e.cfg.MaxWorkers
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// progressThrottle coalesces progress events to at most one per
// interval.
type progressThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newProgressThrottle(interval time.Duration) *progressThrottle {
	if interval <= 0 {
		interval = 125 * time.Millisecond
	}
	return &progressThrottle{interval: interval}
}

func (t *progressThrottle) ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
