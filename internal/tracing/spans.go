package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrResolutionID = "resolve.id"
	AttrStrategy     = "resolve.strategy"
	AttrSection      = "mapping.section"
	AttrKey          = "mapping.key"
	AttrReference    = "mapping.reference"
	AttrCacheHit     = "mapping.cache_hit"
	AttrArgCount     = "resolve.arg_count"
	AttrResultType   = "resolve.result_type"
	AttrErrorKind    = "error.kind"

	AttrPluginDir        = "plugins.dir"
	AttrPluginModules    = "plugins.modules"
	AttrPluginInstances  = "plugins.instances"
	AttrPluginCapability = "plugins.capability"
	AttrPluginFailures   = "plugins.failures"
)

// Span names.
const (
	SpanPrefixResolve = "resolve."
	SpanPluginScan    = "plugins.scan"
	SpanPluginModule  = "plugins.module"
)

// Event names.
const (
	EventLookup    = "mapping.lookup"
	EventTypeLoad  = "catalog.load"
	EventConstruct = "catalog.construct"
)

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
