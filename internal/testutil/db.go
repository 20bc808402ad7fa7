// Package testutil provides fixtures for mapping sources.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implreg/internal/infrastructure/sqlite"
)

// NewMappingDB creates a migrated SQLite mapping database in a temp directory.
// It is closed when the test ends.
func NewMappingDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "mappings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
