// Package app wires configuration into a ready resolver: mapping source, catalog,
// lookup cache, tracing and feature flags.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/zjrosen/implreg/internal/cachemanager"
	"github.com/zjrosen/implreg/internal/catalog"
	"github.com/zjrosen/implreg/internal/config"
	"github.com/zjrosen/implreg/internal/flags"
	"github.com/zjrosen/implreg/internal/infrastructure/sqlite"
	"github.com/zjrosen/implreg/internal/log"
	"github.com/zjrosen/implreg/internal/mapping"
	"github.com/zjrosen/implreg/internal/paths"
	"github.com/zjrosen/implreg/internal/plugins"
	"github.com/zjrosen/implreg/internal/presentation"
	"github.com/zjrosen/implreg/internal/pubsub"
	"github.com/zjrosen/implreg/internal/reports"
	"github.com/zjrosen/implreg/internal/resolver"
	"github.com/zjrosen/implreg/internal/tracing"
	"github.com/zjrosen/implreg/internal/watcher"
)

// ErrReadOnlySource is returned for writes against a file-backed mapping source.
var ErrReadOnlySource = errors.New("mapping source is read-only; set mapping.source to sqlite to edit mappings")

// App holds the wired services for one command invocation.
type App struct {
	Config     config.Config
	ConfigPath string
	Flags      *flags.Registry
	Catalog    *catalog.Catalog
	Source     mapping.Source
	Resolver   *resolver.Resolver
	Tracing    *tracing.Provider

	cache  *cachemanager.InMemoryCacheManager[string, string]
	file   *mapping.FileSource
	db     *sqlite.DB
	events *pubsub.Broker[ReloadEvent]
}

// ReloadEvent is published after every reload attempt. Sections holds the
// mappings now in effect; on failure they are the ones kept from before.
type ReloadEvent struct {
	Path     string
	Sections []presentation.SectionDTO
	Err      error
}

// Option customizes New.
type Option func(*options)

type options struct {
	catalog *catalog.Catalog
	source  mapping.Source
}

// WithCatalog replaces the built-in catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithSource replaces the configured mapping source.
func WithSource(src mapping.Source) Option {
	return func(o *options) { o.source = src }
}

// New validates cfg and builds the services it describes. configPath is the file
// cfg was read from; relative mapping paths are resolved against its directory.
func New(cfg config.Config, configPath string, opts ...Option) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:     cfg,
		ConfigPath: configPath,
		Flags:      flags.New(cfg.Flags),
		events:     pubsub.NewBroker[ReloadEvent](),
	}

	tc := cfg.Tracing
	tc.FilePath = paths.ExpandHome(tc.FilePath)
	provider, err := tracing.NewProvider(tc)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.Tracing = provider

	a.Catalog = o.catalog
	if a.Catalog == nil {
		a.Catalog = catalog.New()
		if err := reports.Register(a.Catalog); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.Source = o.source
	if a.Source == nil {
		if err := a.openSource(); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	resolverOpts := []resolver.Option{
		resolver.WithSection(cfg.Mapping.Section),
		resolver.WithTracer(provider.Tracer()),
	}
	if cfg.Cache.Enabled {
		a.cache = cachemanager.NewInMemoryCacheManager[string, string]("mapping-lookups", cfg.Cache.TTL, 2*cfg.Cache.TTL)
		resolverOpts = append(resolverOpts, resolver.WithCache(a.cache, cfg.Cache.TTL))
	}
	a.Resolver = resolver.New(a.Source, a.Catalog, resolverOpts...)

	log.Debug(log.CatConfig, "app wired",
		"source", cfg.Mapping.Source,
		"section", cfg.Mapping.Section,
		"cache", cfg.Cache.Enabled,
		"tracing", provider.Enabled(),
		"types", a.Catalog.Len(),
	)
	return a, nil
}

func (a *App) configDir() string {
	if a.ConfigPath == "" {
		return ""
	}
	return filepath.Dir(a.ConfigPath)
}

// MappingPath returns the resolved mapping document or database path.
func (a *App) MappingPath() string {
	p := a.Config.Mapping.Path
	if a.Config.Mapping.Source == config.SourceSQLite {
		p = a.Config.Mapping.DSN
	}
	return paths.RelativeTo(paths.ExpandHome(p), a.configDir())
}

func (a *App) openSource() error {
	switch a.Config.Mapping.Source {
	case config.SourceSQLite:
		db, err := sqlite.NewDB(a.MappingPath())
		if err != nil {
			return fmt.Errorf("open mapping database: %w", err)
		}
		a.db = db
		a.Source = db.MappingRepository()
	default:
		fs, err := mapping.OpenFile(a.MappingPath())
		if err != nil {
			return fmt.Errorf("open mapping file: %w", err)
		}
		a.file = fs
		a.Source = fs
	}
	return nil
}

// Repository returns the writable mapping store, or ErrReadOnlySource.
func (a *App) Repository() (*sqlite.MappingRepository, error) {
	if a.db == nil {
		return nil, ErrReadOnlySource
	}
	return a.db.MappingRepository(), nil
}

// CacheStats reports lookup cache counters; ok is false when caching is off.
func (a *App) CacheStats() (stats cachemanager.Stats, ok bool) {
	if a.cache == nil {
		return cachemanager.Stats{}, false
	}
	return a.cache.Stats(), true
}

// Reload re-reads a file source and drops cached lookups. For the SQLite source it
// only drops the cache, since every lookup already hits the database. Subscribers
// are notified either way.
func (a *App) Reload(ctx context.Context) error {
	err := a.reload(ctx)
	ev := ReloadEvent{Path: a.MappingPath(), Err: err}
	if sections, serr := a.Sections(ctx); serr == nil {
		ev.Sections = sections
	} else if err == nil {
		ev.Err = serr
	}

	if ev.Err != nil {
		log.ErrorErr(log.CatWatcher, "mapping reload failed", ev.Err, "path", ev.Path)
		a.events.Publish(pubsub.ReloadFailedEvent, ev)
		return ev.Err
	}
	log.Info(log.CatWatcher, "mappings reloaded", "path", ev.Path, "sections", len(ev.Sections))
	a.events.Publish(pubsub.ReloadedEvent, ev)
	return nil
}

func (a *App) reload(ctx context.Context) error {
	if a.file != nil {
		if err := a.file.Reload(); err != nil {
			return err
		}
	}
	return a.Resolver.FlushCache(ctx)
}

// Subscribe returns reload notifications until ctx ends or the app is closed.
func (a *App) Subscribe(ctx context.Context) <-chan pubsub.Event[ReloadEvent] {
	return a.events.Subscribe(ctx)
}

// Watch reloads the mapping source whenever it changes on disk, until ctx ends.
// Reload failures are published, not returned.
func (a *App) Watch(ctx context.Context) error {
	w, err := a.NewWatcher()
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			_ = a.Reload(ctx)
		}
	}
}

// NewWatcher returns a watcher for the mapping file or database.
func (a *App) NewWatcher() (*watcher.Watcher, error) {
	path := a.MappingPath()
	debounce := a.Config.Mapping.WatchDebounce
	if a.db != nil {
		return watcher.New(watcher.SQLiteConfig(path, debounce))
	}
	cfg := watcher.DefaultConfig(path)
	cfg.DebounceDur = debounce
	return watcher.New(cfg)
}

// PluginDir returns the configured plugin directory, resolved against the
// executable's directory. Empty means the executable's directory itself.
func (a *App) PluginDir() (string, error) {
	dir := paths.ExpandHome(a.Config.Plugins.Dir)
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	exeDir, err := paths.ExecutableDir()
	if err != nil {
		return "", err
	}
	return paths.RelativeTo(dir, exeDir), nil
}

// Scanner returns a plugin scanner honouring the strict-plugin-scan flag.
func (a *App) Scanner() *plugins.Scanner {
	return plugins.NewScanner(
		plugins.WithStrict(a.Flags.Enabled(flags.FlagStrictPluginScan)),
		plugins.WithTracer(a.Tracing.Tracer()),
	)
}

// Sections returns every section of the source as DTOs, sorted by name.
func (a *App) Sections(ctx context.Context) ([]presentation.SectionDTO, error) {
	names, err := a.Source.Sections(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]presentation.SectionDTO, 0, len(names))
	for _, name := range names {
		entries, err := a.Source.Entries(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, presentation.FromEntries(name, entries))
	}
	return out, nil
}

// Close releases the database and flushes traces.
func (a *App) Close() error {
	var errs []error
	a.events.Close()
	if a.Tracing != nil {
		errs = append(errs, a.Tracing.Shutdown(context.Background()))
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
