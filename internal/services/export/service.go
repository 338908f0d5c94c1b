// Package export materializes indexed assets onto disk or the system
// clipboard and serves bounded previews.
package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"

	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/models"
	"github.com/craftscan/craftscan/internal/scanner"
	"github.com/craftscan/craftscan/internal/transcode"
)

// Catalog resolves asset ids and reads asset bytes. The scan engine
// implements it.
type Catalog interface {
	Lookup(assetID string) (models.AssetRecord, bool)
	ReadAsset(assetID string) ([]byte, error)
}

// Clipboard abstracts the system clipboard for testing.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Service runs export operations. Operations execute one asset at a
// time; only one operation runs at once.
type Service struct {
	catalog    Catalog
	transcoder transcode.Transcoder
	clipboard  Clipboard
	bus        *events.Bus
	logger     *events.Logger
	tempDir    string
	previewMax int64

	mu     sync.Mutex
	active *operation
	ops    map[string]*operation
}

// operation tracks one export's progress and terminal result.
type operation struct {
	id     string
	kind   models.ExportKind
	total  int
	cancel context.CancelFunc
	done   chan struct{}

	completed  atomic.Int64
	failed     atomic.Int64
	currentKey atomic.Value // string

	resultMu sync.Mutex
	result   *models.ExportResult
}

func (op *operation) progress() models.ExportProgress {
	p := models.ExportProgress{
		OperationID: op.id,
		Completed:   int(op.completed.Load()),
		Failed:      int(op.failed.Load()),
		Total:       op.total,
	}
	if key, ok := op.currentKey.Load().(string); ok {
		p.CurrentKey = key
	}
	return p
}

// NewService creates an export service. tempDir holds clipboard export
// staging and is cleaned on Close.
func NewService(
	catalog Catalog,
	transcoder transcode.Transcoder,
	bus *events.Bus,
	tempDir string,
	previewMax int64,
	logger *events.Logger,
) *Service {
	return &Service{
		catalog:    catalog,
		transcoder: transcoder,
		clipboard:  systemClipboard{},
		bus:        bus,
		logger:     logger.WithField("component", "export_service"),
		tempDir:    tempDir,
		previewMax: previewMax,
		ops:        make(map[string]*operation),
	}
}

// SetClipboard replaces the clipboard implementation. Tests use this.
func (s *Service) SetClipboard(c Clipboard) { s.clipboard = c }

// SetTranscoder replaces the audio transcoder. Tests use this.
func (s *Service) SetTranscoder(t transcode.Transcoder) { s.transcoder = t }

// Start begins an asynchronous export and returns its operation id.
func (s *Service) Start(ctx context.Context, req models.ExportRequest) (string, error) {
	if len(req.AssetIDs) == 0 {
		return "", models.NewError(models.ErrKindExport, "no assets selected")
	}
	switch req.Kind {
	case models.ExportSave:
		if req.DestinationPath == "" {
			return "", models.NewError(models.ErrKindExport, "save export requires a destination path")
		}
	case models.ExportCopy:
	default:
		return "", models.Errorf(models.ErrKindExport, "unknown export kind %q", req.Kind)
	}

	opID := req.OperationID
	if opID == "" {
		opID = uuid.NewString()
	}

	s.mu.Lock()
	if s.active != nil {
		select {
		case <-s.active.done:
			s.active = nil
		default:
			s.mu.Unlock()
			return "", models.WrapError(models.ErrKindState, "start export", models.ErrExportInProgress)
		}
	}
	if _, taken := s.ops[opID]; taken {
		s.mu.Unlock()
		return "", models.Errorf(models.ErrKindExport, "operation id %q already used", opID)
	}

	// The operation outlives the request that started it.
	opCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	op := &operation{
		id:     opID,
		kind:   req.Kind,
		total:  len(req.AssetIDs),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.active = op
	s.ops[op.id] = op
	s.mu.Unlock()

	go s.run(opCtx, op, req)
	return op.id, nil
}

// Progress returns the live progress of a known operation.
func (s *Service) Progress(operationID string) (models.ExportProgress, error) {
	op, err := s.lookup(operationID)
	if err != nil {
		return models.ExportProgress{}, err
	}
	return op.progress(), nil
}

// Result returns the terminal result of a finished operation.
func (s *Service) Result(operationID string) (models.ExportResult, error) {
	op, err := s.lookup(operationID)
	if err != nil {
		return models.ExportResult{}, err
	}

	op.resultMu.Lock()
	defer op.resultMu.Unlock()
	if op.result == nil {
		return models.ExportResult{}, models.NewError(models.ErrKindState, "export still running")
	}
	return *op.result, nil
}

// Cancel requests cancellation of a running operation.
func (s *Service) Cancel(operationID string) error {
	op, err := s.lookup(operationID)
	if err != nil {
		return err
	}
	op.cancel()
	return nil
}

// Wait blocks until an operation finishes.
func (s *Service) Wait(operationID string) error {
	op, err := s.lookup(operationID)
	if err != nil {
		return err
	}
	<-op.done
	return nil
}

// Close cancels any running export and removes staging directories.
func (s *Service) Close() error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	if active != nil {
		active.cancel()
		<-active.done
	}

	if err := os.RemoveAll(s.stagingRoot()); err != nil {
		return models.WrapError(models.ErrKindExport, "clean export staging", err)
	}
	return nil
}

func (s *Service) lookup(operationID string) (*operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[operationID]
	if !ok {
		return nil, models.WrapError(models.ErrKindState, "operation "+operationID, models.ErrUnknownOperation)
	}
	return op, nil
}

func (s *Service) stagingRoot() string {
	return filepath.Join(s.tempDir, "exports")
}

// run executes an export sequentially on its own goroutine.
func (s *Service) run(ctx context.Context, op *operation, req models.ExportRequest) {
	defer op.cancel()
	defer close(op.done)

	logger := s.logger.WithFields(map[string]interface{}{
		"operation_id": op.id,
		"kind":         string(op.kind),
		"assets":       op.total,
	})
	logger.Info("Starting export")

	destRoot := req.DestinationPath
	if req.Kind == models.ExportCopy {
		destRoot = filepath.Join(s.stagingRoot(), op.id)
	}

	result := models.ExportResult{
		OperationID: op.id,
		Kind:        op.kind,
		Total:       op.total,
	}

	for _, assetID := range req.AssetIDs {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		outPath, key, err := s.exportOne(ctx, destRoot, assetID, req.AudioFormat)
		if err != nil {
			if ctx.Err() != nil {
				result.Cancelled = true
				break
			}
			op.failed.Add(1)
			result.Failed++
			result.Failures = append(result.Failures, models.ExportFailure{
				AssetID: assetID,
				Key:     key,
				Error:   err.Error(),
			})
			logger.WithError(err).WithField("asset_id", assetID).Warn("Asset export failed")
		} else {
			op.completed.Add(1)
			result.Succeeded++
			result.OutputFiles = append(result.OutputFiles, outPath)
		}

		op.currentKey.Store(key)
		s.bus.Publish(events.TopicExportProgress, op.progress())
	}

	if req.Kind == models.ExportCopy && !result.Cancelled && len(result.OutputFiles) > 0 {
		if err := s.clipboard.WriteAll(strings.Join(result.OutputFiles, "\n")); err != nil {
			logger.WithError(err).Warn("Failed to place exported paths on the clipboard")
			result.Failures = append(result.Failures, models.ExportFailure{
				Key:   "clipboard",
				Error: err.Error(),
			})
		}
	}

	op.resultMu.Lock()
	op.result = &result
	op.resultMu.Unlock()

	logger.WithFields(map[string]interface{}{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"cancelled": result.Cancelled,
	}).Info("Export finished")

	s.bus.Publish(events.TopicExportCompleted, result)
}

// exportOne resolves, reads, optionally transcodes, and writes a single
// asset. It returns the output path and the asset key for reporting.
func (s *Service) exportOne(ctx context.Context, destRoot, assetID string, format models.AudioFormat) (string, string, error) {
	rec, ok := s.catalog.Lookup(assetID)
	if !ok {
		return "", "", models.WrapError(models.ErrKindExport, "asset "+assetID, models.ErrUnknownAsset)
	}

	data, err := s.catalog.ReadAsset(assetID)
	if err != nil {
		return "", rec.Key, err
	}

	ext := rec.Extension
	if rec.IsAudio && format != models.AudioOriginal && format != "" {
		data, err = s.transcoder.Transcode(ctx, data, format)
		if err != nil {
			return "", rec.Key, err
		}
		ext = transcode.OutputExtension(format, rec.Extension)
	}

	outPath := filepath.Join(destRoot, exportRelPath(&rec, ext))
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", rec.Key, models.WrapError(models.ErrKindExport, "create export directory", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return "", rec.Key, models.WrapError(models.ErrKindExport, "write "+outPath, err)
	}

	return outPath, rec.Key, nil
}

// exportRelPath mirrors the virtual tree layout on disk:
// <family>/<sourceName>/<namespace>/<relativeAssetPath>.
func exportRelPath(rec *models.AssetRecord, ext string) string {
	relPath := rec.RelativeAssetPath
	if ext != rec.Extension && rec.Extension != "" {
		relPath = strings.TrimSuffix(relPath, "."+rec.Extension) + "." + ext
	}

	segments := []string{
		sanitizeSegment(rec.SourceType.TreeRootName()),
		sanitizeSegment(rec.SourceName),
		sanitizeSegment(rec.Namespace),
	}
	for _, segment := range strings.Split(relPath, "/") {
		segments = append(segments, sanitizeSegment(segment))
	}
	return filepath.Join(segments...)
}

// sanitizeSegment strips characters that are path separators or illegal
// on common filesystems from a single path segment.
func sanitizeSegment(segment string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, segment)

	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "_"
	}
	return cleaned
}

// Preview is a bounded in-memory view of one asset.
type Preview struct {
	AssetID  string `json:"assetId"`
	Key      string `json:"key"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// PreviewAsset reads an asset for inline display. Assets larger than
// the configured cap are refused rather than loaded.
func (s *Service) PreviewAsset(assetID string) (*Preview, error) {
	rec, ok := s.catalog.Lookup(assetID)
	if !ok {
		return nil, models.WrapError(models.ErrKindRead, "asset "+assetID, models.ErrUnknownAsset)
	}

	data, err := s.catalog.ReadAsset(assetID)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.previewMax {
		return nil, models.WrapError(models.ErrKindPreviewBig, rec.Key, models.ErrPreviewTooLarge)
	}

	mime := scanner.MimeFor(rec.Extension)
	if mime == "" {
		mime = sniffMime(data)
	}

	return &Preview{
		AssetID:  rec.AssetID,
		Key:      rec.Key,
		MimeType: mime,
		Data:     data,
	}, nil
}
