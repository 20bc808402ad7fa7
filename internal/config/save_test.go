package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetValue_PreservesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SetValue(path, "mapping.source", SourceSQLite))
	require.NoError(t, SetValue(path, "mapping.dsn", "/data/m.db"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Lookup cache in front of the mapping source")

	cfg, _, err := Load(LoadOptions{ConfigFile: path, EnvFiles: noEnvFile(t)})
	require.NoError(t, err)
	require.Equal(t, SourceSQLite, cfg.Mapping.Source)
	require.Equal(t, "/data/m.db", cfg.Mapping.DSN)
	require.Equal(t, Defaults().Mapping.Section, cfg.Mapping.Section, "siblings are untouched")
}

func TestSetValue_CreatesFileAndParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	require.NoError(t, SetValue(path, "flags.http-resolve", true))
	require.NoError(t, SetValue(path, "cache.enabled", true))

	cfg, _, err := Load(LoadOptions{ConfigFile: path, EnvFiles: noEnvFile(t)})
	require.NoError(t, err)
	require.True(t, cfg.Flags["http-resolve"])
	require.True(t, cfg.Cache.Enabled)
}

func TestSetValue_ReplacesScalarParent(t *testing.T) {
	path := writeConfig(t, "server: oops\n")

	require.NoError(t, SetValue(path, "server.addr", ":1234"))

	cfg, _, err := Load(LoadOptions{ConfigFile: path, EnvFiles: noEnvFile(t)})
	require.NoError(t, err)
	require.Equal(t, ":1234", cfg.Server.Addr)
}

func TestSetValue_InvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Error(t, SetValue(path, "mapping..source", "x"))
	require.Error(t, SetValue(path, "", "x"))
}

func TestSetValue_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, SetValue(path, "log.level", "debug"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
