package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/craftscan/craftscan/internal/config"
)

// TestTimeout provides timeout context for tests.
func TestTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// TestContext creates a test context with reasonable timeout.
func TestContext() (context.Context, context.CancelFunc) {
	return TestTimeout(30 * time.Second)
}

// TestConfigWithDir creates a test configuration rooted at dataDir.
func TestConfigWithDir(dataDir string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			CacheDir: filepath.Join(dataDir, "cache"),
			TempDir:  filepath.Join(dataDir, "temp"),
		},
		Scan: config.ScanConfig{
			MaxWorkers:       2,
			ProgressInterval: 5 * time.Millisecond,
			CancelGrace:      time.Second,
			CacheMaxBytes:    64 << 20,
			ArchivePoolSize:  8,
		},
		Export: config.ExportConfig{
			FFmpegPath:      "ffmpeg",
			PreviewMaxBytes: 16 << 20,
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "json",
		},
	}
}

// WaitForCondition waits for a condition to be true with timeout.
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			t.Fatalf("Timeout waiting for condition: %s", message)
		case <-ticker.C:
			if condition() {
				return
			}
		}
	}
}
