package testutil

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implreg/internal/mapping"
)

// Putter is the write side of a mapping store.
type Putter interface {
	Put(ctx context.Context, section, key, reference string) error
}

// Builder accumulates mapping sections and materializes them as a snapshot, a
// document on disk, or rows in a store.
type Builder struct {
	t        *testing.T
	sections []sectionData
}

// NewBuilder creates an empty builder.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t}
}

// WithSection adds a section. Adding a name twice merges the entries.
func (b *Builder) WithSection(name string, opts ...SectionOption) *Builder {
	idx := slices.IndexFunc(b.sections, func(s sectionData) bool { return s.name == name })
	if idx < 0 {
		b.sections = append(b.sections, sectionData{name: name, entries: make(map[string]string)})
		idx = len(b.sections) - 1
	}
	for _, opt := range opts {
		opt(&b.sections[idx])
	}
	return b
}

func (b *Builder) table() map[string]map[string]string {
	out := make(map[string]map[string]string, len(b.sections))
	for _, s := range b.sections {
		out[s.name] = s.entries
	}
	return out
}

// Snapshot returns the sections as an in-memory source.
func (b *Builder) Snapshot() *mapping.Snapshot {
	return mapping.NewSnapshot(b.table())
}

// WriteFile writes the sections to dir/name in the format implied by the extension
// and returns the full path.
func (b *Builder) WriteFile(dir, name string) string {
	b.t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(b.t, mapping.WriteFile(path, b.table()))
	return path
}

// Build stores every entry in store.
func (b *Builder) Build(store Putter) {
	b.t.Helper()
	ctx := context.Background()
	for _, s := range b.sections {
		for k, ref := range s.entries {
			require.NoError(b.t, store.Put(ctx, s.name, k, ref), "put %s/%s", s.name, k)
		}
	}
}
