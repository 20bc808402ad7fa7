package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

const migrationsTable = "schema_migrations"

// migrateDriver runs golang-migrate against an already open *sql.DB, so migrations
// share the ncruces driver and connection pragmas with the rest of the package.
type migrateDriver struct {
	conn   *sql.DB
	locked atomic.Bool
}

func newMigrateDriver(conn *sql.DB) *migrateDriver {
	return &migrateDriver{conn: conn}
}

var _ database.Driver = (*migrateDriver)(nil)

// Open is unused; the driver is always built with NewWithInstance.
func (d *migrateDriver) Open(string) (database.Driver, error) {
	return nil, errors.New("sqlite migrate driver must be created with an open connection")
}

// Close leaves the pool open; DB.Close owns it.
func (d *migrateDriver) Close() error {
	return nil
}

func (d *migrateDriver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (d *migrateDriver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

func (d *migrateDriver) ensureVersionTable() error {
	_, err := d.conn.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (version INTEGER NOT NULL, dirty INTEGER NOT NULL)`)
	return err
}

func (d *migrateDriver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	if _, err := d.conn.Exec(string(body)); err != nil {
		return database.Error{OrigErr: err, Err: "migration failed", Query: body}
	}
	return nil
}

func (d *migrateDriver) SetVersion(version int, dirty bool) error {
	if err := d.ensureVersionTable(); err != nil {
		return err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin version update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM ` + migrationsTable); err != nil {
		return err
	}
	// NilVersion is only recorded when dirty, mirroring the upstream drivers.
	if version >= 0 || (version == database.NilVersion && dirty) {
		if _, err := tx.Exec(`INSERT INTO `+migrationsTable+` (version, dirty) VALUES (?, ?)`, version, dirty); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *migrateDriver) Version() (int, bool, error) {
	if err := d.ensureVersionTable(); err != nil {
		return 0, false, err
	}

	var (
		version int
		dirty   bool
	)
	err := d.conn.QueryRow(`SELECT version, dirty FROM ` + migrationsTable + ` LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return database.NilVersion, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty, nil
}

func (d *migrateDriver) Drop() error {
	rows, err := d.conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, name := range tables {
		if _, err := d.conn.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %q", name)); err != nil {
			return err
		}
	}
	return nil
}
