package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
// Precedence: defaults, then config file, then CRAFTSCAN_* environment.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a config loader. An empty configPath searches the
// default locations.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envPrefix:  "CRAFTSCAN",
	}
}

// Load reads configuration from file and environment.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("launcher.root", defaults.Launcher.Root)
	v.SetDefault("storage.cache_dir", defaults.Storage.CacheDir)
	v.SetDefault("storage.temp_dir", defaults.Storage.TempDir)
	v.SetDefault("scan.max_workers", defaults.Scan.MaxWorkers)
	v.SetDefault("scan.progress_interval", defaults.Scan.ProgressInterval)
	v.SetDefault("scan.cancel_grace", defaults.Scan.CancelGrace)
	v.SetDefault("scan.cache_max_bytes", defaults.Scan.CacheMaxBytes)
	v.SetDefault("scan.archive_pool_size", defaults.Scan.ArchivePoolSize)
	v.SetDefault("export.ffmpeg_path", defaults.Export.FFmpegPath)
	v.SetDefault("export.preview_max_bytes", defaults.Export.PreviewMaxBytes)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.file", defaults.Log.File)

	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.configPath != "" {
		v.SetConfigFile(l.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", l.configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		for _, dir := range l.defaultDirs() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// defaultDirs returns default config file locations.
func (l *Loader) defaultDirs() []string {
	dirs := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(homeDir, ".config", "craftscan"),
			filepath.Join(homeDir, ".craftscan"),
		)
	}

	return dirs
}
