// Package sqlite stores implementation mappings in a SQLite database.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embeds the SQLite wasm build

	"github.com/zjrosen/implreg/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB owns the connection pool for a mapping database.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (creating if needed) the database at path and applies pending
// migrations. An existing database is copied to path+".bak" before migrating.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if existed {
		if err := db.backup(path + ".bak"); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Debug(log.CatDB, "mapping database ready", "path", path)
	return db, nil
}

// dsn builds a file URI with the connection pragmas every pooled connection needs.
func dsn(path string) string {
	return "file:" + filepath.ToSlash(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)"
}

// backup writes a consistent copy of the database to dest, replacing any older copy.
func (db *DB) backup(dest string) error {
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove old backup: %w", err)
	}
	if _, err := db.conn.Exec("VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("backup database: %w", err)
	}
	log.Debug(log.CatDB, "pre-migration backup written", "path", dest)
	return nil
}

func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", newMigrateDriver(db.conn))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Debug(log.CatDB, "schema migrated", "version", version, "dirty", dirty)
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Connection returns the underlying pool.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// MappingRepository returns the mapping store backed by this database.
func (db *DB) MappingRepository() *MappingRepository {
	return newMappingRepository(db.conn)
}
