package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/zjrosen/implreg/internal/log"
	"github.com/zjrosen/implreg/internal/mapping"
	"github.com/zjrosen/implreg/internal/typekey"
)

// Catalog errors
var (
	ErrDuplicateType     = errors.New("type already registered")
	ErrTypeNotRegistered = errors.New("type not registered")
	ErrAmbiguousType     = errors.New("type name is ambiguous without a module")
	ErrVersionMismatch   = errors.New("no registered version satisfies the constraint")
)

// Catalog holds registrations indexed by normalized type name.
// It is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	byKey   map[string][]*Registration
	ordered []*Registration
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		byKey: make(map[string][]*Registration),
	}
}

// Register validates reg and adds it. A second registration with the same
// normalized name and module is rejected with ErrDuplicateType.
func (c *Catalog) Register(reg Registration) error {
	if err := reg.prepare(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.byKey[reg.key] {
		if existing.Module == reg.Module {
			return fmt.Errorf("%w: %s", ErrDuplicateType, reg.String())
		}
	}

	r := &reg
	c.byKey[r.key] = append(c.byKey[r.key], r)
	c.ordered = append(c.ordered, r)

	log.Debug(log.CatCatalog, "type registered", "name", r.Name, "module", r.Module, "strategies", r.Strategies())
	return nil
}

// MustRegister is Register for init-time use; it panics on error.
func (c *Catalog) MustRegister(regs ...Registration) {
	for _, reg := range regs {
		if err := c.Register(reg); err != nil {
			panic(fmt.Sprintf("catalog: %v", err))
		}
	}
}

// List returns all registrations sorted by name then module.
func (c *Catalog) List() []*Registration {
	c.mu.RLock()
	out := make([]*Registration, len(c.ordered))
	copy(out, c.ordered)
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].key != out[j].key {
			return out[i].key < out[j].key
		}
		return out[i].Module < out[j].Module
	})
	return out
}

// Len returns the number of registrations.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ordered)
}

// Lookup parses a reference string and loads it.
func (c *Catalog) Lookup(reference string) (*Registration, error) {
	ref, err := mapping.ParseReference(reference)
	if err != nil {
		return nil, err
	}
	return c.Load(ref)
}

// Load finds the registration a reference denotes. The type name is compared after
// normalization, the module (when given) must match exactly, and a Version= attribute
// is treated as a semver constraint.
func (c *Catalog) Load(ref mapping.Reference) (*Registration, error) {
	key := typekey.Simple(ref.TypeName)

	c.mu.RLock()
	candidates := append([]*Registration(nil), c.byKey[key]...)
	c.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, ref.TypeName)
	}

	if ref.Module != "" {
		filtered := candidates[:0]
		for _, reg := range candidates {
			if reg.Module == ref.Module {
				filtered = append(filtered, reg)
			}
		}
		if len(filtered) == 0 {
			return nil, fmt.Errorf("%w: %s in module %s", ErrTypeNotRegistered, ref.TypeName, ref.Module)
		}
		candidates = filtered
	}

	if ref.Version != "" {
		constraint, err := semver.NewConstraint(ref.Version)
		if err != nil {
			return nil, fmt.Errorf("%w: constraint %q: %w", ErrInvalidVersion, ref.Version, err)
		}
		filtered := candidates[:0]
		for _, reg := range candidates {
			if reg.version != nil && constraint.Check(reg.version) {
				filtered = append(filtered, reg)
			}
		}
		if len(filtered) == 0 {
			return nil, fmt.Errorf("%w: %s %s", ErrVersionMismatch, ref.TypeName, ref.Version)
		}
		candidates = filtered
	}

	if len(candidates) > 1 {
		return nil, fmt.Errorf("%w: %s matches %d modules", ErrAmbiguousType, ref.TypeName, len(candidates))
	}
	return candidates[0], nil
}
