package resolver

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/implreg/internal/catalog"
	"github.com/zjrosen/implreg/internal/log"
	"github.com/zjrosen/implreg/internal/mapping"
	"github.com/zjrosen/implreg/internal/tracing"
	"github.com/zjrosen/implreg/internal/typekey"
)

// request is one pass through the pipeline.
type request struct {
	key      string
	strategy Strategy
	args     []any
	expect   reflect.Type // nil accepts any instance
	warn     bool         // log failures at WARN instead of DEBUG
}

// Resolve constructs the implementation mapped to T's key with its default constructor.
// This is the only operation that reports failures at WARN.
func Resolve[T any](ctx context.Context, r *Resolver) (T, error) {
	return resolveAs[T](ctx, r, request{
		key:      typekey.Of[T](),
		strategy: StrategyDefault,
		warn:     true,
	})
}

// ResolveWith constructs the implementation mapped to T's key with the first
// registered constructor whose parameters accept args.
func ResolveWith[T any](ctx context.Context, r *Resolver, args ...any) (T, error) {
	return resolveAs[T](ctx, r, request{
		key:      typekey.Of[T](),
		strategy: StrategyArgs,
		args:     args,
	})
}

// ResolveSingleton returns whatever the mapped type's singleton factory returns.
func ResolveSingleton[T any](ctx context.Context, r *Resolver) (T, error) {
	return resolveAs[T](ctx, r, request{
		key:      typekey.Of[T](),
		strategy: StrategySingleton,
	})
}

// ResolveKeyAs is ResolveKey with the result checked against T.
func ResolveKeyAs[T any](ctx context.Context, r *Resolver, key string, args ...any) (T, error) {
	return resolveAs[T](ctx, r, keyRequest(key, args))
}

// ResolveKey constructs the implementation mapped to an arbitrary key. Without args the
// default constructor is used, otherwise a matching constructor.
func (r *Resolver) ResolveKey(ctx context.Context, key string, args ...any) (any, error) {
	return r.resolve(ctx, keyRequest(key, args))
}

// ResolveKeySingleton returns the singleton of the type mapped to an arbitrary key.
func (r *Resolver) ResolveKeySingleton(ctx context.Context, key string) (any, error) {
	return r.resolve(ctx, request{key: key, strategy: StrategySingleton})
}

func keyRequest(key string, args []any) request {
	strategy := StrategyDefault
	if len(args) > 0 {
		strategy = StrategyArgs
	}
	return request{key: key, strategy: strategy, args: args}
}

func resolveAs[T any](ctx context.Context, r *Resolver, req request) (T, error) {
	var zero T
	req.expect = reflect.TypeFor[T]()

	v, err := r.resolve(ctx, req)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// resolve runs lookup -> load -> construct for req.
func (r *Resolver) resolve(ctx context.Context, req request) (any, error) {
	id := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, tracing.SpanPrefixResolve+string(req.strategy), trace.WithAttributes(
		attribute.String(tracing.AttrResolutionID, id),
		attribute.String(tracing.AttrStrategy, string(req.strategy)),
		attribute.String(tracing.AttrSection, r.section),
		attribute.String(tracing.AttrKey, req.key),
		attribute.Int(tracing.AttrArgCount, len(req.args)),
	))

	v, err := r.run(ctx, span, req)
	if err != nil {
		r.report(id, err, req)
		tracing.EndSpan(span, err, attribute.String(tracing.AttrErrorKind, KindOf(err).String()))
		return nil, err
	}

	log.Debug(log.CatResolve, "resolved", "id", id, "key", req.key, "section", r.section,
		"strategy", req.strategy, "type", fmt.Sprintf("%T", v))
	tracing.EndSpan(span, nil, attribute.String(tracing.AttrResultType, fmt.Sprintf("%T", v)))
	return v, nil
}

func (r *Resolver) run(ctx context.Context, span trace.Span, req request) (any, error) {
	fail := func(kind Kind, ref string, err error) error {
		return &Error{
			Kind:      kind,
			Strategy:  req.strategy,
			Section:   r.section,
			Key:       req.key,
			Reference: ref,
			Err:       err,
		}
	}

	ref, cached, err := r.lookup(ctx, req.key)
	span.AddEvent(tracing.EventLookup, trace.WithAttributes(attribute.Bool(tracing.AttrCacheHit, cached)))
	if err != nil {
		switch {
		case errors.Is(err, mapping.ErrSectionMissing):
			return nil, fail(KindSectionMissing, "", err)
		case errors.Is(err, mapping.ErrKeyNotFound):
			return nil, fail(KindKeyNotFound, "", err)
		default:
			return nil, fail(KindSource, "", err)
		}
	}
	span.SetAttributes(attribute.String(tracing.AttrReference, ref))

	reg, err := r.catalog.Lookup(ref)
	span.AddEvent(tracing.EventTypeLoad)
	if err != nil {
		return nil, fail(KindTypeLoad, ref, err)
	}

	v, err := construct(reg, req)
	span.AddEvent(tracing.EventConstruct)
	if err != nil {
		return nil, fail(KindConstruction, ref, err)
	}

	if req.expect != nil && !reflect.TypeOf(v).AssignableTo(req.expect) {
		return nil, fail(KindConstruction, ref, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, v, req.expect))
	}
	return v, nil
}

func construct(reg *catalog.Registration, req request) (any, error) {
	switch req.strategy {
	case StrategySingleton:
		return reg.GetInstance()
	default:
		return reg.Construct(req.args...)
	}
}

// report logs a failure. Only typed default resolution is loud.
func (r *Resolver) report(id string, err error, req request) {
	fields := []any{"id", id, "key", req.key, "section", r.section, "strategy", req.strategy, "kind", KindOf(err), "error", err}
	if req.warn {
		log.Warn(log.CatResolve, "resolution failed", fields...)
		return
	}
	log.Debug(log.CatResolve, "resolution failed", fields...)
}
