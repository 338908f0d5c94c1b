package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Launcher location and instance selection
	Launcher LauncherConfig `json:"launcher" mapstructure:"launcher"`

	// Storage paths
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// Scan behavior
	Scan ScanConfig `json:"scan" mapstructure:"scan"`

	// Export behavior
	Export ExportConfig `json:"export" mapstructure:"export"`

	// Logging
	Log LogConfig `json:"log" mapstructure:"log"`
}

// LauncherConfig selects the launcher installation to scan.
type LauncherConfig struct {
	// Explicit root path; empty means auto-detect.
	Root string `json:"root,omitempty" mapstructure:"root"`
}

// StorageConfig for local file paths.
type StorageConfig struct {
	CacheDir string `json:"cache_dir" mapstructure:"cache_dir"` // Snapshot cache root
	TempDir  string `json:"temp_dir" mapstructure:"temp_dir"`   // Export staging
}

// ScanConfig for scan behavior.
type ScanConfig struct {
	MaxWorkers       int           `json:"max_workers" mapstructure:"max_workers"`             // Container worker pool size (0 = auto)
	ProgressInterval time.Duration `json:"progress_interval" mapstructure:"progress_interval"` // Progress event coalescing
	CancelGrace      time.Duration `json:"cancel_grace" mapstructure:"cancel_grace"`           // Wait for workers after cancel
	CacheMaxBytes    int64         `json:"cache_max_bytes" mapstructure:"cache_max_bytes"`     // Snapshot cache size cap
	ArchivePoolSize  int           `json:"archive_pool_size" mapstructure:"archive_pool_size"` // Pooled open archive handles
}

// ExportConfig for export behavior.
type ExportConfig struct {
	FFmpegPath      string `json:"ffmpeg_path" mapstructure:"ffmpeg_path"`           // ffmpeg binary (empty = PATH lookup)
	PreviewMaxBytes int64  `json:"preview_max_bytes" mapstructure:"preview_max_bytes"` // Preview payload cap
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // text, json
	File   string `json:"file" mapstructure:"file"`     // Log file path (empty = stderr)
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()

	return &Config{
		Storage: StorageConfig{
			CacheDir: filepath.Join(dataDir, "cache"),
			TempDir:  filepath.Join(dataDir, "temp"),
		},
		Scan: ScanConfig{
			MaxWorkers:       0, // min(NumCPU, 8)
			ProgressInterval: 125 * time.Millisecond,
			CancelGrace:      6 * time.Second,
			CacheMaxBytes:    2 << 30, // 2 GiB
			ArchivePoolSize:  32,
		},
		Export: ExportConfig{
			FFmpegPath:      "ffmpeg",
			PreviewMaxBytes: 16 << 20, // 16 MiB
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".craftscan")
	}
	return ".craftscan"
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Storage.CacheDir == "" {
		return errors.New("storage.cache_dir is required")
	}

	if c.Scan.MaxWorkers < 0 {
		return errors.New("scan.max_workers must not be negative")
	}

	if c.Scan.ProgressInterval <= 0 {
		return errors.New("scan.progress_interval must be positive")
	}

	if c.Scan.CacheMaxBytes <= 0 {
		return errors.New("scan.cache_max_bytes must be positive")
	}

	if c.Scan.ArchivePoolSize <= 0 {
		return errors.New("scan.archive_pool_size must be positive")
	}

	if c.Export.PreviewMaxBytes <= 0 {
		return errors.New("export.preview_max_bytes must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.CacheDir,
		c.Storage.TempDir,
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
