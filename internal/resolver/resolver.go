// Package resolver turns a capability into a constructed implementation.
//
// Every resolution runs the same pipeline: look the key up in the configured mapping
// section, load the referenced type from the catalog, then apply a construction
// strategy. The key is either the normalized name of the requested type (Resolve,
// ResolveWith, ResolveSingleton) or a caller-chosen string (ResolveKey, ResolveKeyAs).
//
// Failures are returned as *Error carrying a Kind, so callers can tell "not configured"
// from "failed to construct". OrZero restores the call-and-ignore style:
//
//	gen := resolver.OrZero(resolver.Resolve[reports.SpreadsheetGenerator[reports.ExecutionReport]](ctx, r))
package resolver

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/implreg/internal/cachemanager"
	"github.com/zjrosen/implreg/internal/catalog"
	"github.com/zjrosen/implreg/internal/mapping"
)

// Strategy names the construction strategy of a resolution.
type Strategy string

const (
	StrategyDefault   Strategy = "default"
	StrategyArgs      Strategy = "args"
	StrategySingleton Strategy = "singleton"
)

// Resolver resolves keys against one mapping section. It holds no per-call state and
// is safe for concurrent use when its source is.
type Resolver struct {
	source  mapping.Source
	catalog *catalog.Catalog
	section string
	tracer  trace.Tracer

	cache   cachemanager.CacheManager[string, string]
	ttl     time.Duration
	lookups *cachemanager.ReadThroughCache[string, string, lookupRequest]
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSection selects the mapping section. Empty keeps mapping.DefaultSection.
func WithSection(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.section = name
		}
	}
}

// WithCache caches mapping lookups for ttl. Constructed instances are never cached.
func WithCache(cache cachemanager.CacheManager[string, string], ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = cache
		r.ttl = ttl
	}
}

// WithTracer sets the tracer used for resolution spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Resolver) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

type lookupRequest struct {
	section string
	key     string
	loaded  *bool // set when the source was queried
}

// New creates a Resolver over src and cat.
func New(src mapping.Source, cat *catalog.Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		source:  src,
		catalog: cat,
		section: mapping.DefaultSection,
		tracer:  noop.NewTracerProvider().Tracer("implreg"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.lookups = cachemanager.NewReadThroughCache[string, string, lookupRequest](
		r.cache,
		func(ctx context.Context, req lookupRequest) (string, error) {
			*req.loaded = true
			return r.source.Lookup(ctx, req.section, req.key)
		},
		r.cache == nil,
	)
	return r
}

// WithSection returns a copy of r reading from section. The cache, if any, is shared.
func (r *Resolver) WithSection(section string) *Resolver {
	cp := *r
	if section != "" {
		cp.section = section
	}
	return &cp
}

// Section returns the mapping section r reads.
func (r *Resolver) Section() string {
	return r.section
}

// Source returns the mapping source.
func (r *Resolver) Source() mapping.Source {
	return r.source
}

// Catalog returns the type catalog.
func (r *Resolver) Catalog() *catalog.Catalog {
	return r.catalog
}

// FlushCache drops cached lookups. It is a no-op without a cache.
func (r *Resolver) FlushCache(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Flush(ctx)
}

func cacheKey(section, key string) string {
	return section + "\x00" + key
}

// lookup returns the reference for key and whether it came from the cache.
func (r *Resolver) lookup(ctx context.Context, key string) (string, bool, error) {
	var loaded bool
	ref, err := r.lookups.Get(ctx, cacheKey(r.section, key), lookupRequest{
		section: r.section,
		key:     key,
		loaded:  &loaded,
	}, r.ttl)
	return ref, !loaded && err == nil, err
}
