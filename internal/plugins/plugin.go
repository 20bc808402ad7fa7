package plugins

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/zjrosen/implreg/internal/typekey"
)

// Plugin is the marker a type implements, next to a capability, to be discovered.
type Plugin interface {
	PluginName() string
}

var pluginType = reflect.TypeFor[Plugin]()

// Candidate is a type a module offers for discovery.
type Candidate struct {
	Type reflect.Type
	New  func() (any, error)
}

// TypeOf describes the type newFn constructs. The recorded type is T itself, so
// constructors should return the concrete type (usually a pointer), not an interface.
func TypeOf[T any](newFn func() T) Candidate {
	return Candidate{
		Type: reflect.TypeFor[T](),
		New: func() (any, error) {
			return newFn(), nil
		},
	}
}

// TypeOfErr is TypeOf for constructors that can fail.
func TypeOfErr[T any](newFn func() (T, error)) Candidate {
	return Candidate{
		Type: reflect.TypeFor[T](),
		New: func() (any, error) {
			return newFn()
		},
	}
}

// Name returns the candidate's type key.
func (c Candidate) Name() string {
	return typekey.Normalize(c.Type)
}

// eligible reports whether t implements exactly the two interfaces of {capability, Plugin}.
// The set collapses when capability is Plugin, so asking for the marker itself
// matches nothing.
func eligible(t, capability reflect.Type) bool {
	if t == nil || capability == nil || capability.Kind() != reflect.Interface {
		return false
	}
	required := map[reflect.Type]struct{}{
		capability: {},
		pluginType: {},
	}
	n := 0
	for iface := range required {
		if t.Implements(iface) {
			n++
		}
	}
	return n == 2
}

var errNilInstance = errors.New("constructor returned nil")

// construct calls c.New, turning panics into errors.
func (c Candidate) construct() (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v = nil
			err = fmt.Errorf("constructor for %s panicked: %v", c.Name(), p)
		}
	}()
	if c.New == nil {
		return nil, fmt.Errorf("candidate %s has no constructor", c.Name())
	}
	v, err = c.New()
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", c.Name(), err)
	}
	if isNil(v) {
		return nil, fmt.Errorf("construct %s: %w", c.Name(), errNilInstance)
	}
	return v, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
