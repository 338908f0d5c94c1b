// Package scanner turns container entries into indexable asset records.
package scanner

import (
	"context"
	"strings"

	"github.com/craftscan/craftscan/internal/container"
	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/models"
)

// Extractor derives asset records from container entries.
type Extractor struct {
	logger *events.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(logger *events.Logger) *Extractor {
	return &Extractor{logger: logger.WithField("component", "extractor")}
}

// Admit decides whether an entry path is an asset and splits it into
// namespace and relative asset path. Only entries shaped like
// assets/<namespace>/<path...> are admitted. Archives written by
// broken tools sometimes carry backslash separators; those are
// normalized before splitting.
func Admit(entryPath string) (namespace, relPath string, ok bool) {
	if strings.ContainsRune(entryPath, 0) {
		return "", "", false
	}
	entryPath = strings.ReplaceAll(entryPath, "\\", "/")
	if strings.HasPrefix(entryPath, "__MACOSX/") || strings.Contains(entryPath, "/__MACOSX/") {
		return "", "", false
	}

	segments := strings.Split(entryPath, "/")
	if len(segments) < 3 || segments[0] != "assets" {
		return "", "", false
	}
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return "", "", false
		}
	}
	if segments[len(segments)-1] == ".DS_Store" {
		return "", "", false
	}

	return segments[1], strings.Join(segments[2:], "/"), true
}

// Extract enumerates one container and returns its asset records in
// enumeration order.
func (e *Extractor) Extract(ctx context.Context, r container.Reader) ([]models.AssetRecord, error) {
	c := r.Container()

	var records []models.AssetRecord
	err := r.Enumerate(ctx, func(entry container.Entry) error {
		namespace, relPath, ok := Admit(entry.Path)
		if !ok {
			return nil
		}

		ext := Extension(relPath)
		records = append(records, models.AssetRecord{
			AssetID:           models.AssetID(c.Path, entry.Path),
			Key:               models.AssetKey(c.SourceName, namespace, relPath),
			SourceType:        c.SourceType,
			SourceName:        c.SourceName,
			Namespace:         namespace,
			RelativeAssetPath: relPath,
			Extension:         ext,
			IsImage:           IsImage(ext),
			IsAudio:           IsAudio(ext),
			ContainerPath:     c.Path,
			ContainerType:     c.Type,
			EntryPath:         entry.Path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"container": c.Path,
		"records":   len(records),
	}).Debug("Extracted container")

	return records, nil
}
