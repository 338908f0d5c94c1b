// Package cache persists scan snapshots so unchanged containers skip
// re-extraction on the next scan.
package cache

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/craftscan/craftscan/internal/models"
)

// SchemaVersion guards snapshot compatibility. Snapshots written with
// a different version are discarded as misses.
const SchemaVersion = 1

// Snapshot is the persisted result of one completed scan.
type Snapshot struct {
	SchemaVersion int                          `json:"schemaVersion"`
	CreatedAt     time.Time                    `json:"createdAt"`
	InstanceID    string                       `json:"instanceId"`
	Sources       string                       `json:"sources"`
	Fingerprints  []models.ContainerFingerprint `json:"fingerprints"`
	Records       []models.AssetRecord         `json:"records"`
}

// FingerprintFor finds the stored fingerprint of a container path.
func (s *Snapshot) FingerprintFor(path string) (models.ContainerFingerprint, bool) {
	for _, fp := range s.Fingerprints {
		if fp.Path == path {
			return fp, true
		}
	}
	return models.ContainerFingerprint{}, false
}

// RecordsFor returns the snapshot records belonging to one container,
// in snapshot order.
func (s *Snapshot) RecordsFor(path string) []models.AssetRecord {
	var records []models.AssetRecord
	for _, rec := range s.Records {
		if rec.ContainerPath == path {
			records = append(records, rec)
		}
	}
	return records
}

// Key identifies a snapshot slot: one per instance and source toggle
// combination.
func Key(instanceID string, toggles models.SourceToggles) string {
	return instanceID + "\x00" + toggles.Normalized()
}

// fileNameFor hashes a snapshot key to its on-disk file name.
func fileNameFor(key string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return fmt.Sprintf("scan-%016x.json", h.Sum64())
}
