package mapping

import (
	"context"
	"sync"

	"github.com/zjrosen/implreg/internal/log"
)

// FileSource serves lookups from a mapping document on disk.
// The parsed document is replaced atomically by Reload; lookups in flight keep
// the snapshot they started with.
type FileSource struct {
	path string

	mu       sync.RWMutex
	snapshot *Snapshot
}

// OpenFile parses the document at path and returns a FileSource for it.
func OpenFile(path string) (*FileSource, error) {
	snap, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	log.Debug(log.CatMapping, "mapping document loaded", "path", path, "entries", snap.Len())
	return &FileSource{path: path, snapshot: snap}, nil
}

// Path returns the document path.
func (f *FileSource) Path() string {
	return f.path
}

// Reload re-reads the document. On error the previous snapshot stays in place.
func (f *FileSource) Reload() error {
	snap, err := LoadFile(f.path)
	if err != nil {
		log.ErrorErr(log.CatMapping, "mapping reload failed, keeping previous snapshot", err, "path", f.path)
		return err
	}

	f.mu.Lock()
	f.snapshot = snap
	f.mu.Unlock()

	log.Info(log.CatMapping, "mapping document reloaded", "path", f.path, "entries", snap.Len())
	return nil
}

func (f *FileSource) current() *Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot
}

// Lookup implements Source.
func (f *FileSource) Lookup(ctx context.Context, section, key string) (string, error) {
	return f.current().Lookup(ctx, section, key)
}

// Entries implements Source.
func (f *FileSource) Entries(ctx context.Context, section string) (map[string]string, error) {
	return f.current().Entries(ctx, section)
}

// Sections implements Source.
func (f *FileSource) Sections(ctx context.Context) ([]string, error) {
	return f.current().Sections(ctx)
}

var _ Source = (*FileSource)(nil)
