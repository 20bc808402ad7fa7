package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/implreg/internal/log"
	"github.com/zjrosen/implreg/internal/paths"
	"github.com/zjrosen/implreg/internal/tracing"
	"github.com/zjrosen/implreg/internal/typekey"
)

// Scanner discovers plugins in module directories and compiled-in modules.
type Scanner struct {
	loader   Loader
	registry *Registry
	strict   bool
	tracer   trace.Tracer
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithLoader replaces the module loader.
func WithLoader(l Loader) ScannerOption {
	return func(s *Scanner) { s.loader = l }
}

// WithRegistry replaces the compiled-in module registry.
func WithRegistry(r *Registry) ScannerOption {
	return func(s *Scanner) { s.registry = r }
}

// WithStrict makes the first module failure abort the scan.
func WithStrict(strict bool) ScannerOption {
	return func(s *Scanner) { s.strict = strict }
}

// WithTracer sets the tracer for scan spans.
func WithTracer(t trace.Tracer) ScannerOption {
	return func(s *Scanner) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewScanner creates a Scanner using DefaultLoader and the default registry.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		loader:   DefaultLoader(),
		registry: defaultRegistry,
		tracer:   noop.NewTracerProvider().Tracer("implreg"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Found is one discovered plugin instance.
type Found struct {
	Module   string // module file path or compiled-in module name
	Type     string // type key of the candidate
	Name     string // PluginName()
	Instance any
}

// Scan loads every module file directly inside dir and returns an instance of each
// candidate implementing both C and Plugin. An empty dir means the directory of the
// running executable.
//
// Failed modules are skipped; their errors are joined into the returned error while
// the other modules' instances are still returned. In strict mode the first failure
// is returned with no instances.
func Scan[C any](ctx context.Context, s *Scanner, dir string) ([]C, error) {
	found, err := s.ScanDir(ctx, dir, reflect.TypeFor[C]())
	return instances[C](found), err
}

// ScanRegistered is Scan over the compiled-in modules.
func ScanRegistered[C any](ctx context.Context, s *Scanner) ([]C, error) {
	found, err := s.ScanModules(ctx, reflect.TypeFor[C]())
	return instances[C](found), err
}

// instances keeps a nil result nil, so a strict abort still reports no instances.
func instances[C any](found []Found) []C {
	if found == nil {
		return nil
	}
	out := make([]C, 0, len(found))
	for _, f := range found {
		out = append(out, f.Instance.(C))
	}
	return out
}

// ScanDir is the untyped form of Scan.
func (s *Scanner) ScanDir(ctx context.Context, dir string, capability reflect.Type) ([]Found, error) {
	if dir == "" {
		exeDir, err := paths.ExecutableDir()
		if err != nil {
			return nil, fmt.Errorf("%w: locate executable: %w", ErrPluginDir, err)
		}
		dir = exeDir
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanPluginScan, trace.WithAttributes(
		attribute.String(tracing.AttrPluginDir, dir),
		attribute.String(tracing.AttrPluginCapability, typekey.Normalize(capability)),
	))

	entries, err := os.ReadDir(dir)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrPluginDir, dir, err)
		tracing.EndSpan(span, err)
		return nil, err
	}

	var modules []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ModuleExt) {
			continue
		}
		modules = append(modules, filepath.Join(dir, entry.Name()))
	}

	found, err := s.scan(ctx, capability, len(modules), func(i int) (string, []Candidate, error) {
		candidates, err := s.loader.Load(modules[i])
		return modules[i], candidates, err
	})
	tracing.EndSpan(span, err,
		attribute.Int(tracing.AttrPluginModules, len(modules)),
		attribute.Int(tracing.AttrPluginInstances, len(found)),
		attribute.Int(tracing.AttrPluginFailures, len(ModuleErrors(err))),
	)
	return found, err
}

// ScanModules is the untyped form of ScanRegistered.
func (s *Scanner) ScanModules(ctx context.Context, capability reflect.Type) ([]Found, error) {
	modules := s.registry.Modules()

	ctx, span := s.tracer.Start(ctx, tracing.SpanPluginScan, trace.WithAttributes(
		attribute.String(tracing.AttrPluginDir, "<compiled-in>"),
		attribute.String(tracing.AttrPluginCapability, typekey.Normalize(capability)),
	))

	found, err := s.scan(ctx, capability, len(modules), func(i int) (string, []Candidate, error) {
		return modules[i].Name, modules[i].Candidates, nil
	})
	tracing.EndSpan(span, err,
		attribute.Int(tracing.AttrPluginModules, len(modules)),
		attribute.Int(tracing.AttrPluginInstances, len(found)),
	)
	return found, err
}

// scan walks n modules obtained from load.
func (s *Scanner) scan(
	ctx context.Context,
	capability reflect.Type,
	n int,
	load func(i int) (string, []Candidate, error),
) ([]Found, error) {
	if capability == nil || capability.Kind() != reflect.Interface {
		return nil, fmt.Errorf("plugin capability must be an interface type, got %v", capability)
	}

	found := make([]Found, 0)
	var errs []error

	for i := range n {
		if err := ctx.Err(); err != nil {
			return found, errors.Join(append(errs, err)...)
		}

		module, candidates, err := load(i)
		if err != nil {
			me := &ModuleError{Path: module, Err: err}
			log.Warn(log.CatPlugin, "plugin module failed to load", "module", module, "error", err)
			if s.strict {
				return nil, me
			}
			errs = append(errs, me)
			continue
		}

		got, err := s.instantiate(ctx, module, candidates, capability)
		if err != nil && s.strict {
			return nil, err
		}
		if err != nil {
			errs = append(errs, err)
		}
		found = append(found, got...)
	}

	log.Debug(log.CatPlugin, "plugin scan finished",
		"capability", typekey.Normalize(capability), "modules", n, "instances", len(found), "failures", len(errs))
	return found, errors.Join(errs...)
}

// instantiate constructs the eligible candidates of one module.
func (s *Scanner) instantiate(ctx context.Context, module string, candidates []Candidate, capability reflect.Type) ([]Found, error) {
	_, span := s.tracer.Start(ctx, tracing.SpanPluginModule, trace.WithAttributes(
		attribute.String(tracing.AttrPluginDir, module),
	))

	var (
		found []Found
		errs  []error
	)
	for _, c := range candidates {
		if !eligible(c.Type, capability) {
			log.Debug(log.CatPlugin, "candidate skipped", "module", module, "type", c.Name())
			continue
		}

		v, err := c.construct()
		if err == nil && !eligible(reflect.TypeOf(v), capability) {
			err = fmt.Errorf("constructor for %s returned %T", c.Name(), v)
		}
		if err != nil {
			me := &ModuleError{Path: module, Candidate: c.Name(), Err: err}
			log.Warn(log.CatPlugin, "plugin candidate failed", "module", module, "type", c.Name(), "error", err)
			if s.strict {
				tracing.EndSpan(span, me)
				return nil, me
			}
			errs = append(errs, me)
			continue
		}

		name := v.(Plugin).PluginName()
		log.Debug(log.CatPlugin, "plugin discovered", "module", module, "type", c.Name(), "name", name)
		found = append(found, Found{Module: module, Type: c.Name(), Name: name, Instance: v})
	}

	err := errors.Join(errs...)
	tracing.EndSpan(span, err, attribute.Int(tracing.AttrPluginInstances, len(found)))
	return found, err
}
