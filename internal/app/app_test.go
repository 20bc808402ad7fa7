package app

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implreg/internal/catalog"
	"github.com/zjrosen/implreg/internal/config"
	"github.com/zjrosen/implreg/internal/mapping"
	"github.com/zjrosen/implreg/internal/pubsub"
	"github.com/zjrosen/implreg/internal/reports"
	"github.com/zjrosen/implreg/internal/resolver"
	"github.com/zjrosen/implreg/internal/testutil"
)

func fileConfig(t *testing.T) (config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	testutil.NewBuilder(t).WithReportsMapping().WriteFile(dir, "mappings.yaml")

	cfg := config.Defaults()
	cfg.Mapping.Path = "mappings.yaml"
	return cfg, filepath.Join(dir, "config.yaml")
}

func newApp(t *testing.T, cfg config.Config, configPath string, opts ...Option) *App {
	t.Helper()
	a, err := New(cfg, configPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_FileSourceRelativeToConfig(t *testing.T) {
	cfg, configPath := fileConfig(t)
	a := newApp(t, cfg, configPath)

	require.Equal(t, filepath.Join(filepath.Dir(configPath), "mappings.yaml"), a.MappingPath())

	gen, err := resolver.Resolve[reports.SpreadsheetGenerator[reports.ExecutionReport]](context.Background(), a.Resolver)
	require.NoError(t, err)
	require.Equal(t, "csv", gen.Format())

	_, err = a.Repository()
	require.ErrorIs(t, err, ErrReadOnlySource)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mapping.Source = "etcd"
	_, err := New(cfg, "")
	require.Error(t, err)
}

func TestNew_MissingMappingFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mapping.Path = filepath.Join(t.TempDir(), "absent.yaml")
	_, err := New(cfg, "")
	require.Error(t, err)
}

func TestNew_SQLiteSource(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mapping.Source = config.SourceSQLite
	cfg.Mapping.DSN = filepath.Join(t.TempDir(), "m.db")
	a := newApp(t, cfg, "")

	repo, err := a.Repository()
	require.NoError(t, err)
	testutil.NewBuilder(t).WithReportsMapping().Build(repo)

	f, err := resolver.ResolveSingleton[*reports.Formats](context.Background(), a.Resolver)
	require.NoError(t, err)
	require.Same(t, reports.GetInstance(), f)
}

func TestReload_PicksUpFileChangesAndFlushesCache(t *testing.T) {
	cfg, configPath := fileConfig(t)
	cfg.Cache.Enabled = true
	a := newApp(t, cfg, configPath)
	ctx := context.Background()

	exp, err := resolver.Resolve[reports.Exporter](ctx, a.Resolver)
	require.NoError(t, err)
	require.Equal(t, "application/json", exp.ContentType())

	stats, ok := a.CacheStats()
	require.True(t, ok)
	require.Equal(t, 1, stats.Entries)

	testutil.NewBuilder(t).
		WithReportsMapping().
		WithSection(mapping.DefaultSection, testutil.Entry(testutil.KeyExporter, "reports.YAMLExporter, reports")).
		WriteFile(filepath.Dir(configPath), "mappings.yaml")
	require.NoError(t, a.Reload(ctx))

	exp, err = resolver.Resolve[reports.Exporter](ctx, a.Resolver)
	require.NoError(t, err)
	require.Equal(t, "application/yaml", exp.ContentType())
}

func TestReload_KeepsSnapshotOnBadFile(t *testing.T) {
	cfg, configPath := fileConfig(t)
	a := newApp(t, cfg, configPath)

	require.NoError(t, os.WriteFile(a.MappingPath(), []byte("not: [valid"), 0o600))
	require.Error(t, a.Reload(context.Background()))

	_, err := resolver.Resolve[reports.Exporter](context.Background(), a.Resolver)
	require.NoError(t, err)
}

func TestCacheDisabledByDefault(t *testing.T) {
	cfg, configPath := fileConfig(t)
	a := newApp(t, cfg, configPath)

	_, ok := a.CacheStats()
	require.False(t, ok)
	require.NoError(t, a.Reload(context.Background()))
}

// swappableSource serves one snapshot at a time and counts lookups.
type swappableSource struct {
	current atomic.Pointer[mapping.Snapshot]
	lookups atomic.Int64
}

func newSwappableSource(exporterRef string) *swappableSource {
	s := &swappableSource{}
	s.set(exporterRef)
	return s
}

func (s *swappableSource) set(exporterRef string) {
	s.current.Store(mapping.NewSnapshot(map[string]map[string]string{
		mapping.DefaultSection: {testutil.KeyExporter: exporterRef},
	}))
}

func (s *swappableSource) Lookup(ctx context.Context, section, key string) (string, error) {
	s.lookups.Add(1)
	return s.current.Load().Lookup(ctx, section, key)
}

func (s *swappableSource) Entries(ctx context.Context, section string) (map[string]string, error) {
	return s.current.Load().Entries(ctx, section)
}

func (s *swappableSource) Sections(ctx context.Context) ([]string, error) {
	return s.current.Load().Sections(ctx)
}

func TestDefaults_EveryResolutionReadsTheSource(t *testing.T) {
	src := newSwappableSource(testutil.RefJSON)
	a := newApp(t, config.Defaults(), "", WithSource(src))
	ctx := context.Background()

	v, err := a.Resolver.ResolveKey(ctx, testutil.KeyExporter)
	require.NoError(t, err)
	require.IsType(t, &reports.JSONExporter{}, v)

	src.set("reports.YAMLExporter, reports")

	v, err = a.Resolver.ResolveKey(ctx, testutil.KeyExporter)
	require.NoError(t, err)
	require.IsType(t, &reports.YAMLExporter{}, v)
	require.Equal(t, int64(2), src.lookups.Load())

	_, cached := a.CacheStats()
	require.False(t, cached)
}

func TestWithOverrides(t *testing.T) {
	c := catalog.New()
	src := mapping.NewSnapshot(map[string]map[string]string{"Implementations": {}})
	a := newApp(t, config.Defaults(), "", WithCatalog(c), WithSource(src))

	require.Same(t, c, a.Catalog)
	require.Zero(t, a.Catalog.Len())

	sections, err := a.Sections(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Empty(t, sections[0].Entries)
}

func TestSections(t *testing.T) {
	cfg, configPath := fileConfig(t)
	a := newApp(t, cfg, configPath)

	sections, err := a.Sections(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Alternate", sections[0].Name)
	require.Equal(t, mapping.DefaultSection, sections[1].Name)
}

func TestPluginDir(t *testing.T) {
	cfg := config.Defaults()
	cfg.Plugins.Dir = "/opt/implreg/plugins"
	a := newApp(t, cfg, "", WithSource(mapping.NewSnapshot(nil)))

	dir, err := a.PluginDir()
	require.NoError(t, err)
	require.Equal(t, "/opt/implreg/plugins", dir)

	a.Config.Plugins.Dir = "plugins"
	dir, err = a.PluginDir()
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(dir))
	require.Equal(t, "plugins", filepath.Base(dir))
}

func TestNewWatcher(t *testing.T) {
	cfg, configPath := fileConfig(t)
	a := newApp(t, cfg, configPath)

	w, err := a.NewWatcher()
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)
	require.NoError(t, w.Stop())
}

func nextEvent(t *testing.T, ch <-chan pubsub.Event[ReloadEvent]) pubsub.Event[ReloadEvent] {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timeout waiting for reload event")
		return pubsub.Event[ReloadEvent]{}
	}
}

func TestReload_PublishesEvents(t *testing.T) {
	cfg, configPath := fileConfig(t)
	a := newApp(t, cfg, configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := a.Subscribe(ctx)

	require.NoError(t, a.Reload(ctx))
	ev := nextEvent(t, events)
	require.Equal(t, pubsub.ReloadedEvent, ev.Type)
	require.Equal(t, a.MappingPath(), ev.Payload.Path)
	require.Len(t, ev.Payload.Sections, 2)
	require.NoError(t, ev.Payload.Err)

	require.NoError(t, os.WriteFile(a.MappingPath(), []byte("not: [valid"), 0o600))
	require.Error(t, a.Reload(ctx))
	ev = nextEvent(t, events)
	require.Equal(t, pubsub.ReloadFailedEvent, ev.Type)
	require.Error(t, ev.Payload.Err)
	require.Len(t, ev.Payload.Sections, 2, "previous mappings stay in effect")
}

func TestWatch_ReloadsOnFileChange(t *testing.T) {
	cfg, configPath := fileConfig(t)
	cfg.Mapping.WatchDebounce = 20 * time.Millisecond
	a := newApp(t, cfg, configPath)

	ctx, cancel := context.WithCancel(context.Background())
	events := a.Subscribe(ctx)

	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()
	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)

	testutil.NewBuilder(t).
		WithReportsMapping().
		WithSection("Extra", testutil.Entry(testutil.KeyFormats, testutil.RefFormats)).
		WriteFile(filepath.Dir(configPath), "mappings.yaml")

	ev := nextEvent(t, events)
	require.Equal(t, pubsub.ReloadedEvent, ev.Type)
	require.Len(t, ev.Payload.Sections, 3)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		require.FailNow(t, "Watch did not return after cancel")
	}
}

func TestClose_EndsSubscriptions(t *testing.T) {
	cfg, configPath := fileConfig(t)
	a, err := New(cfg, configPath)
	require.NoError(t, err)

	events := a.Subscribe(context.Background())
	require.NoError(t, a.Close())

	_, ok := <-events
	require.False(t, ok)
}
