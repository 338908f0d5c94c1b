package models

// ExportKind selects how an export materializes assets.
type ExportKind string

const (
	ExportSave ExportKind = "save"
	ExportCopy ExportKind = "copy"
)

// AudioFormat is the requested output format for audio assets.
type AudioFormat string

const (
	AudioOriginal AudioFormat = "original"
	AudioMP3      AudioFormat = "mp3"
	AudioWAV      AudioFormat = "wav"
)

// ExportRequest describes one export operation. OperationID lets the
// caller pick the id up front so the operation is addressable (for
// cancellation) before the request returns; when empty one is
// generated.
type ExportRequest struct {
	OperationID     string      `json:"operationId,omitempty"`
	Kind            ExportKind  `json:"kind"`
	AssetIDs        []string    `json:"assetIds"`
	DestinationPath string      `json:"destinationPath,omitempty"`
	AudioFormat     AudioFormat `json:"audioFormat"`
}

// ExportFailure records one asset that could not be exported.
type ExportFailure struct {
	AssetID string `json:"assetId"`
	Key     string `json:"key"`
	Error   string `json:"error"`
}

// ExportProgress is the payload of export://progress events.
type ExportProgress struct {
	OperationID string `json:"operationId"`
	Completed   int    `json:"completed"`
	Failed      int    `json:"failed"`
	Total       int    `json:"total"`
	CurrentKey  string `json:"currentKey,omitempty"`
}

// ExportResult is the payload of export://completed events and the
// terminal result of an export operation.
type ExportResult struct {
	OperationID string          `json:"operationId"`
	Kind        ExportKind      `json:"kind"`
	Cancelled   bool            `json:"cancelled"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	Total       int             `json:"total"`
	OutputFiles []string        `json:"outputFiles"`
	Failures    []ExportFailure `json:"failures,omitempty"`
}
