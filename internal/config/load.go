package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zjrosen/implreg/internal/log"
)

// EnvPrefix prefixes environment overrides, e.g. IMPLREG_MAPPING_SOURCE=sqlite.
const EnvPrefix = "IMPLREG"

// LocalConfigPath is the project-local config file, checked before the user config.
var LocalConfigPath = filepath.Join(".implreg", "config.yaml")

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// ConfigFile, when set, is the only config file read and must exist.
	ConfigFile string

	// EnvFiles are loaded into the process environment first. Missing files are
	// ignored. Default: ".env"
	EnvFiles []string
}

// Load builds a Config from defaults, the first config file found and IMPLREG_*
// environment variables, in increasing precedence. It returns the config file
// used, or "" when running on defaults.
//
// Lookup order: opts.ConfigFile, ./.implreg/config.yaml, ~/.config/implreg/config.yaml.
func Load(opts LoadOptions) (Config, string, error) {
	envFiles := opts.EnvFiles
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn(log.CatConfig, "Failed to load env file", "path", f, "error", err)
		}
	}

	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	switch {
	case opts.ConfigFile != "":
		v.SetConfigFile(opts.ConfigFile)
	case fileExists(LocalConfigPath):
		v.SetConfigFile(LocalConfigPath)
	default:
		if dir := DefaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("reading config: %w", err)
		}
		log.Debug(log.CatConfig, "No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Flags == nil {
		cfg.Flags = map[string]bool{}
	}

	used := v.ConfigFileUsed()
	log.Debug(log.CatConfig, "Config loaded", "file", used, "source", cfg.Mapping.Source, "section", cfg.Mapping.Section)
	return cfg, used, nil
}

// setDefaults registers every key so environment overrides apply to keys the
// config file leaves out.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("mapping.source", d.Mapping.Source)
	v.SetDefault("mapping.path", d.Mapping.Path)
	v.SetDefault("mapping.dsn", d.Mapping.DSN)
	v.SetDefault("mapping.section", d.Mapping.Section)
	v.SetDefault("mapping.watch_debounce", d.Mapping.WatchDebounce)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("plugins.dir", d.Plugins.Dir)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("server.addr", d.Server.Addr)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
