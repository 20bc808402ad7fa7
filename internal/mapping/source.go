package mapping

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// DefaultSection is the section consulted when none is configured.
const DefaultSection = "Implementations"

// Lookup errors
var (
	ErrSectionMissing = errors.New("mapping section not found")
	ErrKeyNotFound    = errors.New("mapping key not found")
)

// Source resolves keys to type references within named sections.
// Implementations must be safe for concurrent readers.
type Source interface {
	// Lookup returns the type reference stored under key in section.
	// Returns ErrSectionMissing or ErrKeyNotFound (possibly wrapped).
	Lookup(ctx context.Context, section, key string) (string, error)

	// Entries returns a copy of every entry in section.
	Entries(ctx context.Context, section string) (map[string]string, error)

	// Sections returns the section names, sorted.
	Sections(ctx context.Context) ([]string, error)
}

// Snapshot is an immutable section table.
type Snapshot struct {
	sections map[string]map[string]string
}

// NewSnapshot copies sections into a new Snapshot.
func NewSnapshot(sections map[string]map[string]string) *Snapshot {
	copied := make(map[string]map[string]string, len(sections))
	for name, entries := range sections {
		copied[name] = maps.Clone(entries)
		if copied[name] == nil {
			copied[name] = make(map[string]string)
		}
	}
	return &Snapshot{sections: copied}
}

// Lookup implements Source.
func (s *Snapshot) Lookup(_ context.Context, section, key string) (string, error) {
	entries, ok := s.sections[section]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSectionMissing, section)
	}
	ref, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("%w: %q in section %q", ErrKeyNotFound, key, section)
	}
	return ref, nil
}

// Entries implements Source.
func (s *Snapshot) Entries(_ context.Context, section string) (map[string]string, error) {
	entries, ok := s.sections[section]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSectionMissing, section)
	}
	return maps.Clone(entries), nil
}

// Sections implements Source.
func (s *Snapshot) Sections(_ context.Context) ([]string, error) {
	return slices.Sorted(maps.Keys(s.sections)), nil
}

// Len returns the total number of entries across all sections.
func (s *Snapshot) Len() int {
	n := 0
	for _, entries := range s.sections {
		n += len(entries)
	}
	return n
}

// Compile-time check that Snapshot implements Source.
var _ Source = (*Snapshot)(nil)
