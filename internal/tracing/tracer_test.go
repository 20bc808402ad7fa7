package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.False(t, cfg.Enabled, "tracing should be disabled by default")
	require.Equal(t, ExporterFile, cfg.Exporter)
	require.Empty(t, cfg.FilePath)
	require.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.Equal(t, "implreg", cfg.ServiceName)
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: false})
	require.NoError(t, err)
	require.False(t, provider.Enabled())

	ctx, span := provider.Tracer().Start(context.Background(), "resolve.default")
	require.NotNil(t, ctx)
	require.False(t, span.SpanContext().IsValid(), "no-op spans carry no context")
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_FileExporterWritesSpans(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")

	provider, err := NewProvider(Config{
		Enabled:  true,
		Exporter: ExporterFile,
		FilePath: tracePath,
	})
	require.NoError(t, err)
	require.True(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), "resolve.default")
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))

	data, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"name":"resolve.default"`)
}

func TestNewProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "file exporter without path",
			cfg:  Config{Enabled: true, Exporter: ExporterFile},
			want: "file_path required",
		},
		{
			name: "unknown exporter",
			cfg:  Config{Enabled: true, Exporter: "zipkin"},
			want: "unsupported exporter type: zipkin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.cfg)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewProvider_NoneExporter(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: true, Exporter: ExporterNone})
	require.NoError(t, err)
	require.True(t, provider.Enabled())
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	_, ok := tracer.Start(context.Background(), "resolve.default")
	EndSpan(ok, nil, attribute.String(AttrKey, "audit"))
	_, failed := tracer.Start(context.Background(), "resolve.singleton")
	EndSpan(failed, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, codes.Ok, spans[0].Status().Code)
	require.Contains(t, spans[0].Attributes(), attribute.String(AttrKey, "audit"))
	require.Equal(t, codes.Error, spans[1].Status().Code)
	require.Equal(t, "boom", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1, "error recorded as event")
}
