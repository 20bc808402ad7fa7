package plugins

import (
	"fmt"
	"slices"
	"sync"
)

// Module is a named set of candidates compiled into the binary.
type Module struct {
	Name       string
	Candidates []Candidate
}

// Registry holds compiled-in modules in registration order.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry = NewRegistry()

// RegisterModule adds a compiled-in module to the default registry, usually from
// an init function. It panics on a duplicate name.
func RegisterModule(name string, candidates ...Candidate) {
	if err := defaultRegistry.Register(name, candidates...); err != nil {
		panic(err)
	}
}

// Register adds a module. Names must be unique.
func (r *Registry) Register(name string, candidates ...Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.modules {
		if m.Name == name {
			return fmt.Errorf("plugin module %q already registered", name)
		}
	}
	r.modules = append(r.modules, Module{Name: name, Candidates: slices.Clone(candidates)})
	return nil
}

// Modules returns the registered modules.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.modules)
}
