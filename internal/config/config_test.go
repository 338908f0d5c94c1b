package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftscan/craftscan/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.NotEmpty(t, cfg.Storage.CacheDir)
	assert.NotEmpty(t, cfg.Storage.TempDir)
	assert.Equal(t, 125*time.Millisecond, cfg.Scan.ProgressInterval)
	assert.Equal(t, int64(2<<30), cfg.Scan.CacheMaxBytes)
	assert.Equal(t, int64(16<<20), cfg.Export.PreviewMaxBytes)
	assert.Equal(t, "info", cfg.Log.Level)

	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr string
	}{
		{
			name: "valid config",
			modify: func(c *config.Config) {
				// No modifications
			},
			wantErr: "",
		},
		{
			name: "missing cache dir",
			modify: func(c *config.Config) {
				c.Storage.CacheDir = ""
			},
			wantErr: "storage.cache_dir is required",
		},
		{
			name: "invalid log level",
			modify: func(c *config.Config) {
				c.Log.Level = "invalid"
			},
			wantErr: "invalid log level",
		},
		{
			name: "negative workers",
			modify: func(c *config.Config) {
				c.Scan.MaxWorkers = -2
			},
			wantErr: "scan.max_workers must not be negative",
		},
		{
			name: "zero cache cap",
			modify: func(c *config.Config) {
				c.Scan.CacheMaxBytes = 0
			},
			wantErr: "scan.cache_max_bytes must be positive",
		},
		{
			name: "invalid log format",
			modify: func(c *config.Config) {
				c.Log.Format = "xml"
			},
			wantErr: "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoaderFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{
  "storage": {"cache_dir": "/tmp/craftscan-cache"},
  "scan": {"max_workers": 3},
  "log": {"level": "debug", "format": "json"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/craftscan-cache", cfg.Storage.CacheDir)
	assert.Equal(t, 3, cfg.Scan.MaxWorkers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	// Untouched sections keep defaults.
	assert.Equal(t, 125*time.Millisecond, cfg.Scan.ProgressInterval)
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("CRAFTSCAN_LOG_LEVEL", "warn")
	t.Setenv("CRAFTSCAN_LAUNCHER_ROOT", "/opt/prism")

	cfg, err := config.NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/opt/prism", cfg.Launcher.Root)
}

func TestLoaderRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log": {"level": "loud"}}`), 0600))

	_, err := config.NewLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
