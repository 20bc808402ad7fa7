package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/implreg/internal/log"
	"github.com/zjrosen/implreg/internal/mapping"
)

const implementationColumns = `section, key, reference, module, updated_at`

// MappingRepository is a mapping.Source whose sections live in SQLite.
// Unlike file sources it is writable.
type MappingRepository struct {
	db  *sql.DB
	now func() time.Time
}

func newMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db, now: time.Now}
}

var _ mapping.Source = (*MappingRepository)(nil)

func scanImplementation(scanner interface{ Scan(...any) error }) (*ImplementationModel, error) {
	var model ImplementationModel
	err := scanner.Scan(&model.Section, &model.Key, &model.Reference, &model.Module, &model.UpdatedAt)
	return &model, err
}

func (r *MappingRepository) sectionExists(ctx context.Context, section string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sections WHERE name = ?`, section).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check section: %w", err)
	}
	return true, nil
}

// Lookup implements mapping.Source.
func (r *MappingRepository) Lookup(ctx context.Context, section, key string) (string, error) {
	var ref string
	err := r.db.QueryRowContext(ctx,
		`SELECT reference FROM implementations WHERE section = ? AND key = ?`,
		section, key,
	).Scan(&ref)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up mapping: %w", err)
	}

	exists, err := r.sectionExists(ctx, section)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %q", mapping.ErrSectionMissing, section)
	}
	return "", fmt.Errorf("%w: %q in section %q", mapping.ErrKeyNotFound, key, section)
}

// Entries implements mapping.Source.
func (r *MappingRepository) Entries(ctx context.Context, section string) (map[string]string, error) {
	models, err := r.List(ctx, section)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]string, len(models))
	for _, m := range models {
		entries[m.Key] = m.Reference
	}
	return entries, nil
}

// List returns the rows of section ordered by key.
func (r *MappingRepository) List(ctx context.Context, section string) ([]*ImplementationModel, error) {
	exists, err := r.sectionExists(ctx, section)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", mapping.ErrSectionMissing, section)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+implementationColumns+` FROM implementations WHERE section = ? ORDER BY key`,
		section,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var models []*ImplementationModel
	for rows.Next() {
		model, err := scanImplementation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		models = append(models, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mappings: %w", err)
	}
	return models, nil
}

// FindByModule returns every row, across sections, whose reference names module.
func (r *MappingRepository) FindByModule(ctx context.Context, module string) ([]*ImplementationModel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+implementationColumns+` FROM implementations WHERE module = ? ORDER BY section, key`,
		module,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find mappings by module: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var models []*ImplementationModel
	for rows.Next() {
		model, err := scanImplementation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		models = append(models, model)
	}
	return models, rows.Err()
}

// Sections implements mapping.Source.
func (r *MappingRepository) Sections(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM sections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Put stores reference under key in section, creating the section if needed.
// The reference must parse; an existing entry is replaced.
func (r *MappingRepository) Put(ctx context.Context, section, key, reference string) error {
	if section == "" || key == "" {
		return errors.New("section and key are required")
	}
	if err := r.putSection(ctx, section, map[string]string{key: reference}); err != nil {
		return err
	}
	log.Debug(log.CatDB, "mapping saved", "section", section, "key", key, "reference", reference)
	return nil
}

// Import stores every entry of src in one transaction per section.
func (r *MappingRepository) Import(ctx context.Context, src mapping.Source) (int, error) {
	sections, err := src.Sections(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, section := range sections {
		entries, err := src.Entries(ctx, section)
		if err != nil {
			return n, err
		}
		if err := r.putSection(ctx, section, entries); err != nil {
			return n, err
		}
		n += len(entries)
	}
	return n, nil
}

func (r *MappingRepository) putSection(ctx context.Context, section string, entries map[string]string) error {
	now := r.now().Unix()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sections (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		section, now,
	); err != nil {
		return fmt.Errorf("failed to create section: %w", err)
	}

	for key, reference := range entries {
		ref, err := mapping.ParseReference(reference)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO implementations (`+implementationColumns+`) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(section, key) DO UPDATE SET
				reference = excluded.reference, module = excluded.module, updated_at = excluded.updated_at`,
			section, key, ref.String(), ref.Module, now,
		); err != nil {
			return fmt.Errorf("failed to save mapping: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mappings: %w", err)
	}
	return nil
}

// Delete removes key from section. Returns mapping.ErrKeyNotFound when absent.
func (r *MappingRepository) Delete(ctx context.Context, section, key string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM implementations WHERE section = ? AND key = ?`,
		section, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q in section %q", mapping.ErrKeyNotFound, key, section)
	}
	return nil
}

// DeleteSection removes section and all of its entries.
func (r *MappingRepository) DeleteSection(ctx context.Context, section string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE name = ?`, section)
	if err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", mapping.ErrSectionMissing, section)
	}
	return nil
}
