// Package config provides configuration types and defaults for implreg.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/zjrosen/implreg/internal/log"
	"github.com/zjrosen/implreg/internal/mapping"
	"github.com/zjrosen/implreg/internal/tracing"
)

// Mapping source kinds.
const (
	SourceFile   = "file"
	SourceSQLite = "sqlite"
)

// Config holds all configuration options for implreg.
type Config struct {
	Mapping MappingConfig   `mapstructure:"mapping"`
	Cache   CacheConfig     `mapstructure:"cache"`
	Plugins PluginsConfig   `mapstructure:"plugins"`
	Log     LogConfig       `mapstructure:"log"`
	Tracing tracing.Config  `mapstructure:"tracing"`
	Server  ServerConfig    `mapstructure:"server"`
	Flags   map[string]bool `mapstructure:"flags"`
}

// MappingConfig selects where key to type reference mappings come from.
type MappingConfig struct {
	// Source is "file" (default) or "sqlite".
	Source string `mapstructure:"source"`

	// Path is the YAML, JSON or HCL mapping document for the file source.
	Path string `mapstructure:"path"`

	// DSN is the SQLite database path for the sqlite source.
	// Default: ~/.config/implreg/mappings.db
	DSN string `mapstructure:"dsn"`

	// Section is the section resolutions read from. Default: "Implementations"
	Section string `mapstructure:"section"`

	// WatchDebounce coalesces bursts of file events before a reload.
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

// CacheConfig controls the key to reference lookup cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// PluginsConfig holds plugin discovery settings.
type PluginsConfig struct {
	// Dir is scanned for plugin modules. Relative paths are resolved against the
	// executable's directory.
	Dir string `mapstructure:"dir"`
}

// LogConfig holds log output settings. An empty Path disables file logging.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"` // debug, info (default), warn, error
}

// ServerConfig holds the serve command settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultConfigDir returns ~/.config/implreg, or "" if the home dir is unavailable.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "implreg")
}

// DefaultDatabasePath returns the default SQLite mapping database path.
func DefaultDatabasePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "mappings.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()

	return Config{
		Mapping: MappingConfig{
			Source:        SourceFile,
			Path:          "mappings.yaml",
			DSN:           DefaultDatabasePath(),
			Section:       mapping.DefaultSection,
			WatchDebounce: 200 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
		Tracing: tc,
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Flags: map[string]bool{},
	}
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks cfg for errors. Empty optional values are allowed.
func Validate(cfg Config) error {
	if err := ValidateMapping(cfg.Mapping); err != nil {
		return err
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", cfg.Cache.TTL)
	}
	if cfg.Log.Level != "" && !slices.Contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("log.level must be one of %v, got %q", logLevels, cfg.Log.Level)
	}
	if err := ValidateTracing(cfg.Tracing); err != nil {
		return err
	}
	return nil
}

// ValidateMapping checks the mapping source configuration.
func ValidateMapping(m MappingConfig) error {
	switch m.Source {
	case SourceFile:
		if m.Path == "" {
			return fmt.Errorf("mapping.path is required for the %q source", SourceFile)
		}
		if _, err := mapping.FormatOf(m.Path); err != nil {
			return fmt.Errorf("mapping.path: %w", err)
		}
	case SourceSQLite:
		if m.DSN == "" {
			return fmt.Errorf("mapping.dsn is required for the %q source", SourceSQLite)
		}
	default:
		return fmt.Errorf("mapping.source must be %q or %q, got %q", SourceFile, SourceSQLite, m.Source)
	}
	if m.Section == "" {
		return fmt.Errorf("mapping.section must not be empty")
	}
	if m.WatchDebounce < 0 {
		return fmt.Errorf("mapping.watch_debounce must not be negative, got %s", m.WatchDebounce)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc tracing.Config) error {
	if tc.Exporter != "" {
		valid := []string{tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP}
		if !slices.Contains(valid, tc.Exporter) {
			return fmt.Errorf("tracing.exporter must be one of %v, got %q", valid, tc.Exporter)
		}
	}
	if tc.SampleRate < 0 || tc.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# implreg configuration

# Where key -> type reference mappings come from
mapping:
  source: file                   # file (default) or sqlite
  path: mappings.yaml   # YAML, JSON or HCL document, relative to this file
  # dsn: ~/.config/implreg/mappings.db  # database path (sqlite source)
  section: Implementations       # section consulted by resolve
  watch_debounce: 200ms          # coalesce file events before reloading

# Lookup cache in front of the mapping source. Off by default so every
# resolution re-reads the mapping.
cache:
  enabled: false
  ttl: 5m

# Plugin discovery
# plugins:
#   dir: plugins   # relative to the executable's directory

# Logging
log:
  level: info      # debug, info, warn or error
  # path: ~/.config/implreg/implreg.log

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # none, file, stdout, otlp (default: file)
#   file_path: ~/.config/implreg/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # 0.0-1.0 (default: 1.0)

# HTTP surface for the serve command
server:
  addr: 127.0.0.1:8080

# Feature flags
# flags:
#   strict-plugin-scan: false   # abort plugin scans at the first broken module
#   http-resolve: false         # expose /v1/resolve/{key} on serve
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
