package cachemanager

import (
	"context"
	"time"
)

// ReadThroughCache fronts fn with a CacheManager. Errors from fn are never cached.
type ReadThroughCache[K comparable, V any, I any] struct {
	cache           CacheManager[K, V]
	fn              func(ctx context.Context, input I) (V, error)
	shouldSkipCache bool
}

// NewReadThroughCache wraps fn. With shouldSkipCache set every Get calls fn directly.
func NewReadThroughCache[K comparable, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	shouldSkipCache bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:           cache,
		fn:              fn,
		shouldSkipCache: shouldSkipCache || cache == nil,
	}
}

// Get returns the cached value for key or computes it from input.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, func(ctx context.Context, key K) (V, bool) {
		return r.cache.Get(ctx, key)
	})
}

// GetWithRefresh is Get, extending the ttl of a cached value on hit.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, func(ctx context.Context, key K) (V, bool) {
		return r.cache.GetWithRefresh(ctx, key, ttl)
	})
}

// Invalidate drops the cached values for keys.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, keys ...K) error {
	if r.shouldSkipCache {
		return nil
	}
	return r.cache.Delete(ctx, keys...)
}

func (r *ReadThroughCache[K, V, I]) get(
	ctx context.Context,
	key K,
	input I,
	ttl time.Duration,
	lookup func(context.Context, K) (V, bool),
) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, input)
	}

	if value, ok := lookup(ctx, key); ok {
		return value, nil
	}

	value, err := r.fn(ctx, input)
	if err != nil {
		return value, err
	}

	r.cache.Set(ctx, key, value, ttl)

	return value, nil
}
