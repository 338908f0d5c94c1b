package gateway

import (
	"github.com/craftscan/craftscan/internal/models"
)

// StartScanRequest selects the instance and source families to scan.
type StartScanRequest struct {
	PrismRoot            string `json:"prismRoot"`
	InstanceFolder       string `json:"instanceFolder"`
	IncludeVanilla       bool   `json:"includeVanilla"`
	IncludeMods          bool   `json:"includeMods"`
	IncludeResourcepacks bool   `json:"includeResourcepacks"`
	ForceRescan          bool   `json:"forceRescan,omitempty"`
}

// StartScanResponse is the synchronous reply to start_scan.
type StartScanResponse struct {
	ScanID         string `json:"scanId"`
	CacheHit       bool   `json:"cacheHit"`
	RefreshStarted bool   `json:"refreshStarted"`
}

// SearchRequest narrows a paginated asset search.
type SearchRequest struct {
	ScanID        string `json:"scanId"`
	Query         string `json:"query"`
	FolderNodeID  string `json:"folderNodeId,omitempty"`
	Offset        int    `json:"offset"`
	Limit         int    `json:"limit"`
	IncludeImages bool   `json:"includeImages"`
	IncludeAudio  bool   `json:"includeAudio"`
	IncludeOther  bool   `json:"includeOther"`
}

// SearchResponse carries one result page and the total match count.
type SearchResponse struct {
	Total  int                  `json:"total"`
	Assets []models.AssetRecord `json:"assets"`
}

// PreviewResponse is a base64 rendering of one asset for inline
// display.
type PreviewResponse struct {
	Mime   string `json:"mime"`
	Base64 string `json:"base64"`
}

// ReconcileResponse maps prior asset ids onto the current index.
type ReconcileResponse struct {
	IDMap      map[string]string `json:"idMap"`
	UnknownIDs []string          `json:"unknownIds"`
}

// ExportRequest asks for assets to be saved or staged for the
// clipboard. A caller that wants to cancel the blocking call supplies
// its own OperationID and passes it to CancelExport; when empty an id
// is generated.
type ExportRequest struct {
	ScanID         string             `json:"scanId"`
	OperationID    string             `json:"operationId,omitempty"`
	AssetIDs       []string           `json:"assetIds"`
	DestinationDir string             `json:"destinationDir,omitempty"`
	AudioFormat    models.AudioFormat `json:"audioFormat"`
}
