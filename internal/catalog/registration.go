package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/zjrosen/implreg/internal/typekey"
)

// Registration errors
var (
	ErrEmptyName             = errors.New("registration name cannot be empty")
	ErrNoStrategy            = errors.New("registration must have at least one construction strategy")
	ErrInvalidConstructor    = errors.New("invalid constructor")
	ErrInvalidVersion        = errors.New("invalid registration version")
	ErrNoDefault             = errors.New("type has no default constructor")
	ErrNoInstance            = errors.New("type has no singleton factory")
	ErrNoMatchingConstructor = errors.New("no constructor matches the arguments")
	ErrConstructorPanic      = errors.New("constructor panicked")
	ErrNilInstance           = errors.New("constructor returned nil")
)

var errorType = reflect.TypeFor[error]()

// Registration describes one resolvable type and how to build it.
type Registration struct {
	// Name is the type name as written in references, e.g. "reports.CSVGenerator".
	Name string
	// Module is the Go package path hosting the type.
	Module string
	// Version is an optional semantic version matched against Version= constraints.
	Version string

	// New constructs the type with no arguments.
	New func() (any, error)
	// Constructors are typed funcs, tried in order against supplied arguments.
	Constructors []any
	// Instance returns the type's singleton.
	Instance func() (any, error)

	key     string
	version *semver.Version
	ctors   []constructor
}

// constructor is a validated parameterized constructor.
type constructor struct {
	fn       reflect.Value
	params   []reflect.Type
	hasError bool
}

// Key returns the normalized name the registration is indexed under.
func (r *Registration) Key() string {
	return r.key
}

// String returns the registration as a reference, "Name, Module".
func (r *Registration) String() string {
	if r.Module == "" {
		return r.Name
	}
	return r.Name + ", " + r.Module
}

// HasDefault reports whether the type supports default construction.
func (r *Registration) HasDefault() bool {
	return r.New != nil
}

// HasInstance reports whether the type exposes a singleton factory.
func (r *Registration) HasInstance() bool {
	return r.Instance != nil
}

// Strategies lists the supported construction strategies for display.
func (r *Registration) Strategies() []string {
	var out []string
	if r.New != nil {
		out = append(out, "default")
	}
	for _, c := range r.ctors {
		names := make([]string, len(c.params))
		for i, p := range c.params {
			names[i] = typekey.Normalize(p)
		}
		out = append(out, fmt.Sprintf("ctor(%s)", strings.Join(names, ", ")))
	}
	if r.Instance != nil {
		out = append(out, "singleton")
	}
	return out
}

// prepare validates the registration and fills its derived fields.
func (r *Registration) prepare() error {
	if r.Name == "" {
		return ErrEmptyName
	}
	if r.New == nil && r.Instance == nil && len(r.Constructors) == 0 {
		return fmt.Errorf("%w: %s", ErrNoStrategy, r.Name)
	}
	r.key = typekey.Simple(r.Name)

	if r.Version != "" {
		v, err := semver.NewVersion(r.Version)
		if err != nil {
			return fmt.Errorf("%w %q for %s: %w", ErrInvalidVersion, r.Version, r.Name, err)
		}
		r.version = v
	}

	r.ctors = make([]constructor, 0, len(r.Constructors))
	for i, fn := range r.Constructors {
		c, err := newConstructor(fn)
		if err != nil {
			return fmt.Errorf("%s constructor %d: %w", r.Name, i, err)
		}
		r.ctors = append(r.ctors, c)
	}
	return nil
}

func newConstructor(fn any) (constructor, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return constructor{}, fmt.Errorf("%w: %T is not a func", ErrInvalidConstructor, fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return constructor{}, fmt.Errorf("%w: variadic %s", ErrInvalidConstructor, t)
	}

	c := constructor{fn: v}
	switch {
	case t.NumOut() == 1 && t.Out(0) != errorType:
	case t.NumOut() == 2 && t.Out(1) == errorType:
		c.hasError = true
	default:
		return constructor{}, fmt.Errorf("%w: %s must return T or (T, error)", ErrInvalidConstructor, t)
	}

	c.params = make([]reflect.Type, t.NumIn())
	for i := range c.params {
		c.params[i] = t.In(i)
	}
	return c, nil
}

// matches reports whether args can be passed to c.
func (c constructor) matches(args []any) bool {
	if len(args) != len(c.params) {
		return false
	}
	for i, arg := range args {
		if !assignable(arg, c.params[i]) {
			return false
		}
	}
	return true
}

func assignable(arg any, param reflect.Type) bool {
	if arg == nil {
		switch param.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return true
		}
		return false
	}
	return reflect.TypeOf(arg).AssignableTo(param)
}

func (c constructor) call(args []any) (any, error) {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(c.params[i])
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}

	out := c.fn.Call(in)
	if c.hasError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// Construct builds a new instance. With no arguments the default constructor is used;
// otherwise the first registered constructor whose parameters accept args is called.
func (r *Registration) Construct(args ...any) (any, error) {
	if len(args) == 0 && r.New != nil {
		return guard(r.New)
	}
	for _, c := range r.ctors {
		if c.matches(args) {
			return guard(func() (any, error) { return c.call(args) })
		}
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDefault, r)
	}
	return nil, fmt.Errorf("%w: %s with %s", ErrNoMatchingConstructor, r, describeArgs(args))
}

// GetInstance invokes the type's singleton factory.
func (r *Registration) GetInstance() (any, error) {
	if r.Instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoInstance, r)
	}
	return guard(r.Instance)
}

// guard runs fn, turning panics and nil results into errors.
func guard(fn func() (any, error)) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v = nil
			err = fmt.Errorf("%w: %v", ErrConstructorPanic, p)
		}
	}()

	v, err = fn()
	if err != nil {
		return nil, err
	}
	if isNil(v) {
		return nil, ErrNilInstance
	}
	return v, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func describeArgs(args []any) string {
	names := make([]string, len(args))
	for i, arg := range args {
		if arg == nil {
			names[i] = "nil"
			continue
		}
		names[i] = typekey.Normalize(reflect.TypeOf(arg))
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// Default adapts a typed no-argument constructor into Registration.New.
func Default[T any](fn func() T) func() (any, error) {
	return func() (any, error) {
		return fn(), nil
	}
}

// DefaultErr adapts a typed no-argument constructor that can fail.
func DefaultErr[T any](fn func() (T, error)) func() (any, error) {
	return func() (any, error) {
		return fn()
	}
}

// Singleton adapts a typed GetInstance func into Registration.Instance.
func Singleton[T any](fn func() T) func() (any, error) {
	return func() (any, error) {
		return fn(), nil
	}
}
