package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/models"
	"github.com/craftscan/craftscan/internal/storage"
)

// Store keeps snapshot files under a cache directory with a SQLite
// manifest tracking sizes and access times for LRU eviction. SQLite's
// file locking also serializes manifest updates across processes.
type Store struct {
	blobs    storage.BlobStore
	db       *sql.DB
	maxBytes int64
	logger   *events.Logger
}

// NewStore opens (or creates) the cache at cacheDir.
func NewStore(cacheDir string, maxBytes int64, logger *events.Logger) (*Store, error) {
	blobs, err := storage.NewLocalStore(cacheDir, logger)
	if err != nil {
		return nil, models.WrapError(models.ErrKindCache, "open cache directory", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(cacheDir, "manifest.db")+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, models.WrapError(models.ErrKindCache, "open cache manifest", err)
	}

	store := &Store{
		blobs:    blobs,
		db:       db,
		maxBytes: maxBytes,
		logger:   logger.WithField("component", "cache_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, models.WrapError(models.ErrKindCache, "initialize cache manifest", err)
	}

	return store, nil
}

// initialize creates the manifest schema.
func (s *Store) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS snapshots (
        file_name TEXT PRIMARY KEY,
        size_bytes INTEGER NOT NULL,
        last_accessed_at INTEGER NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_snapshots_accessed ON snapshots(last_accessed_at);

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.Exec(schema, SchemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load returns the cached snapshot for the key, or (nil, nil) on a
// miss. Corrupt or incompatible snapshots are discarded silently.
func (s *Store) Load(instanceID string, toggles models.SourceToggles) (*Snapshot, error) {
	fileName := fileNameFor(Key(instanceID, toggles))

	data, err := s.blobs.Read(fileName)
	if err != nil {
		return nil, nil // miss
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.WithField("file", fileName).Warn("Discarding corrupt snapshot")
		s.discard(fileName)
		return nil, nil
	}

	if snapshot.SchemaVersion != SchemaVersion ||
		snapshot.InstanceID != instanceID ||
		snapshot.Sources != toggles.Normalized() {
		s.logger.WithField("file", fileName).Debug("Discarding incompatible snapshot")
		s.discard(fileName)
		return nil, nil
	}

	s.touch(fileName)
	return &snapshot, nil
}

// Save persists a snapshot and evicts least-recently-used entries once
// the cache exceeds its size cap.
func (s *Store) Save(snapshot *Snapshot) error {
	snapshot.SchemaVersion = SchemaVersion
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return models.WrapError(models.ErrKindCache, "encode snapshot", err)
	}

	fileName := fileNameFor(snapshot.InstanceID + "\x00" + snapshot.Sources)

	if err := s.blobs.Write(fileName, data, 0600); err != nil {
		return models.WrapError(models.ErrKindCache, "write snapshot", err)
	}

	_, err = s.db.Exec(`
        INSERT INTO snapshots (file_name, size_bytes, last_accessed_at)
        VALUES (?, ?, ?)
        ON CONFLICT(file_name) DO UPDATE SET
            size_bytes = excluded.size_bytes,
            last_accessed_at = excluded.last_accessed_at
    `, fileName, len(data), time.Now().UnixNano())
	if err != nil {
		return models.WrapError(models.ErrKindCache, "update manifest", err)
	}

	return s.evict()
}

// Invalidate drops the snapshot for one key.
func (s *Store) Invalidate(instanceID string, toggles models.SourceToggles) {
	s.discard(fileNameFor(Key(instanceID, toggles)))
}

// Close closes the manifest database.
func (s *Store) Close() error {
	return s.db.Close()
}

// evict removes least-recently-used snapshots until the total size
// fits under the cap.
func (s *Store) evict() error {
	var total int64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(size_bytes), 0) FROM snapshots`).Scan(&total); err != nil {
		return models.WrapError(models.ErrKindCache, "sum cache size", err)
	}
	if total <= s.maxBytes {
		return nil
	}

	rows, err := s.db.Query(`SELECT file_name, size_bytes FROM snapshots ORDER BY last_accessed_at ASC`)
	if err != nil {
		return models.WrapError(models.ErrKindCache, "list snapshots", err)
	}
	defer rows.Close()

	type victim struct {
		name string
		size int64
	}
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.name, &v.size); err != nil {
			return models.WrapError(models.ErrKindCache, "scan manifest row", err)
		}
		victims = append(victims, v)
		total -= v.size
		if total <= s.maxBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return models.WrapError(models.ErrKindCache, "iterate manifest", err)
	}

	for _, v := range victims {
		s.discard(v.name)
		s.logger.WithFields(map[string]interface{}{
			"file": v.name,
			"size": v.size,
		}).Debug("Evicted snapshot")
	}
	return nil
}

// touch bumps the access time of a snapshot.
func (s *Store) touch(fileName string) {
	_, err := s.db.Exec(`UPDATE snapshots SET last_accessed_at = ? WHERE file_name = ?`,
		time.Now().UnixNano(), fileName)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to touch snapshot")
	}
}

// discard removes a snapshot file and its manifest row.
func (s *Store) discard(fileName string) {
	if err := s.blobs.Delete(fileName); err != nil {
		s.logger.WithError(err).WithField("file", fileName).Warn("Failed to delete snapshot")
	}
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE file_name = ?`, fileName); err != nil {
		s.logger.WithError(err).WithField("file", fileName).Warn("Failed to delete manifest row")
	}
}
