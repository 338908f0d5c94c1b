package models

// ScanLifecycle is the terminal-state machine of a scan.
type ScanLifecycle string

const (
	LifecycleScanning  ScanLifecycle = "scanning"
	LifecycleCompleted ScanLifecycle = "completed"
	LifecycleCancelled ScanLifecycle = "cancelled"
	LifecycleError     ScanLifecycle = "error"
)

// ScanPhase is the coarse progress phase reported on progress events.
type ScanPhase string

const (
	PhaseEstimating ScanPhase = "estimating"
	PhaseScanning   ScanPhase = "scanning"
	PhaseRefreshing ScanPhase = "refreshing"
)

// SourceToggles selects which container families a scan includes.
type SourceToggles struct {
	IncludeVanilla       bool `json:"includeVanilla"`
	IncludeMods          bool `json:"includeMods"`
	IncludeResourcepacks bool `json:"includeResourcepacks"`
}

// Any reports whether at least one source family is enabled.
func (t SourceToggles) Any() bool {
	return t.IncludeVanilla || t.IncludeMods || t.IncludeResourcepacks
}

// Normalized renders the toggle set as a stable cache-key fragment.
func (t SourceToggles) Normalized() string {
	key := []byte{'-', '-', '-'}
	if t.IncludeVanilla {
		key[0] = 'v'
	}
	if t.IncludeMods {
		key[1] = 'm'
	}
	if t.IncludeResourcepacks {
		key[2] = 'r'
	}
	return string(key)
}

// ScanStatus is the synchronous status view of a scan.
type ScanStatus struct {
	ScanID            string        `json:"scanId"`
	Lifecycle         ScanLifecycle `json:"lifecycle"`
	IsRefreshing      bool          `json:"isRefreshing"`
	ScannedContainers int           `json:"scannedContainers"`
	TotalContainers   int           `json:"totalContainers"`
	AssetCount        int           `json:"assetCount"`
	Error             string        `json:"error,omitempty"`
}

// ScanProgress is the payload of scan://progress events.
type ScanProgress struct {
	ScanID            string    `json:"scanId"`
	ScannedContainers int       `json:"scannedContainers"`
	TotalContainers   int       `json:"totalContainers"`
	AssetCount        int       `json:"assetCount"`
	Phase             ScanPhase `json:"phase"`
	CurrentSource     string    `json:"currentSource,omitempty"`
}

// ScanCompleted is the payload of scan://completed events. Failed
// scans publish ScanFailed instead.
type ScanCompleted struct {
	ScanID     string        `json:"scanId"`
	Lifecycle  ScanLifecycle `json:"lifecycle"`
	AssetCount int           `json:"assetCount"`
}

// ScanFailed is the payload of scan://error events.
type ScanFailed struct {
	ScanID string `json:"scanId"`
	Error  string `json:"error"`
}

// ContainerFingerprint is the cheap invalidation token of a container.
// For plain files it is a stat tuple; for directories ContentHash digests
// the sorted (entryPath, size, mtime) listing.
type ContainerFingerprint struct {
	Path           string        `json:"containerPath"`
	Type           ContainerType `json:"containerType"`
	Size           int64         `json:"size"`
	ModifiedTimeNs int64         `json:"modifiedTimeNs"`
	ContentHash    string        `json:"contentHash,omitempty"`
}

// Equal reports whether two fingerprints describe identical content.
func (f ContainerFingerprint) Equal(other ContainerFingerprint) bool {
	return f.Path == other.Path &&
		f.Type == other.Type &&
		f.Size == other.Size &&
		f.ModifiedTimeNs == other.ModifiedTimeNs &&
		f.ContentHash == other.ContentHash
}
