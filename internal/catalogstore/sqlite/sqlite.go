// Package sqlite is a persistent catalog.Store backed by
// github.com/ncruces/go-sqlite3, the pure-Go (no cgo) SQLite driver — one
// concrete, exercised Catalog Store implementation beyond the in-memory
// reference used by most tests, following the way
// steveyegge-beads/cmd/bd/doctor opens its own SQLite database via the same
// driver/embed build tags and a DSN string.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"syncer/internal/catalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS tables (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	db_id INTEGER NOT NULL,
	schema_name TEXT,
	name TEXT NOT NULL,
	display_name TEXT,
	active INTEGER NOT NULL DEFAULT 1,
	rows INTEGER,
	description TEXT NOT NULL DEFAULT '',
	caveats TEXT NOT NULL DEFAULT '',
	points_of_interest TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL DEFAULT '',
	show_in_getting_started INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS fields (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	table_id INTEGER NOT NULL,
	parent_id INTEGER,
	name TEXT NOT NULL,
	base_type TEXT NOT NULL,
	special_type TEXT,
	display_name TEXT,
	preview_display INTEGER NOT NULL DEFAULT 1,
	active INTEGER NOT NULL DEFAULT 1,
	description TEXT NOT NULL DEFAULT '',
	distinct_count INTEGER NOT NULL DEFAULT 0,
	should_have_field_values INTEGER NOT NULL DEFAULT 0,
	refresh_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS foreign_keys (
	origin_field_id INTEGER NOT NULL,
	destination_field_id INTEGER NOT NULL,
	relationship TEXT NOT NULL
);
`

// Store is a catalog.Store over a *sql.DB opened against a SQLite file or
// in-memory database.
type Store struct {
	db *sql.DB
}

var _ catalog.Store = (*Store)(nil)

// Open opens dsn (e.g. "file:catalog.db" or ":memory:") and ensures schema
// exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalogstore/sqlite: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ActiveTables(ctx context.Context, dbID int64) ([]*catalog.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, db_id, schema_name, name, display_name, active, rows,
		       description, caveats, points_of_interest, entity_type, show_in_getting_started
		FROM tables WHERE db_id = ? AND active = 1 ORDER BY id
	`, dbID)
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: active tables: %w", err)
	}
	defer rows.Close()

	var out []*catalog.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTable(ctx context.Context, t *catalog.Table) (*catalog.Table, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tables (db_id, schema_name, name, display_name, active, rows,
			description, caveats, points_of_interest, entity_type, show_in_getting_started)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?)
	`, t.DBID, t.Schema, t.Name, t.DisplayName, t.Rows,
		t.Description, t.Caveats, t.PointsOfInterest, t.EntityType, t.ShowInGettingStarted)
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: create table %s: %w", t.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: create table %s: %w", t.Name, err)
	}
	out := *t
	out.ID = id
	out.Active = true
	return &out, nil
}

func (s *Store) UpdateTable(ctx context.Context, id int64, patch catalog.TablePatch) error {
	if patch.DisplayName != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tables SET display_name = ? WHERE id = ?`, *patch.DisplayName, id); err != nil {
			return err
		}
	}
	if patch.Rows != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tables SET rows = ? WHERE id = ?`, *patch.Rows, id); err != nil {
			return err
		}
	}
	if patch.Description != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tables SET description = ? WHERE id = ?`, *patch.Description, id); err != nil {
			return err
		}
	}
	if patch.Caveats != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tables SET caveats = ? WHERE id = ?`, *patch.Caveats, id); err != nil {
			return err
		}
	}
	if patch.PointsOfInterest != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tables SET points_of_interest = ? WHERE id = ?`, *patch.PointsOfInterest, id); err != nil {
			return err
		}
	}
	if patch.EntityType != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tables SET entity_type = ? WHERE id = ?`, *patch.EntityType, id); err != nil {
			return err
		}
	}
	if patch.ShowInGettingStarted != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tables SET show_in_getting_started = ? WHERE id = ?`, *patch.ShowInGettingStarted, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeactivateTables(ctx context.Context, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalogstore/sqlite: deactivate tables: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE tables SET active = 0 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("catalogstore/sqlite: deactivate table %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE fields SET active = 0 WHERE table_id = ?`, id); err != nil {
			return fmt.Errorf("catalogstore/sqlite: deactivate fields of table %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) FindTable(ctx context.Context, dbID int64, name string, schema *string) (*catalog.Table, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, db_id, schema_name, name, display_name, active, rows,
		       description, caveats, points_of_interest, entity_type, show_in_getting_started
		FROM tables
		WHERE db_id = ? AND name = ? AND schema_name IS ?
	`, dbID, name, schema)
	t, err := scanTable(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: find table %s: %w", name, err)
	}
	return t, nil
}

func (s *Store) ActiveFields(ctx context.Context, tableID int64, parentID *int64) ([]*catalog.Field, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_id, parent_id, name, base_type, special_type, display_name,
		       preview_display, active, description
		FROM fields WHERE table_id = ? AND active = 1 AND parent_id IS ? ORDER BY id
	`, tableID, parentID)
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: active fields: %w", err)
	}
	defer rows.Close()

	var out []*catalog.Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) CreateField(ctx context.Context, f *catalog.Field) (*catalog.Field, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fields (table_id, parent_id, name, base_type, special_type, display_name,
			preview_display, active, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
	`, f.TableID, f.ParentID, f.Name, string(f.BaseType), specialTypeValue(f.SpecialType), f.DisplayName,
		f.PreviewDisplay, f.Description)
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: create field %s: %w", f.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: create field %s: %w", f.Name, err)
	}
	out := *f
	out.ID = id
	out.Active = true
	return &out, nil
}

func (s *Store) UpdateField(ctx context.Context, id int64, patch catalog.FieldPatch) error {
	if patch.BaseType != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE fields SET base_type = ? WHERE id = ?`, string(*patch.BaseType), id); err != nil {
			return err
		}
	}
	if patch.SpecialType != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE fields SET special_type = ? WHERE id = ?`, string(*patch.SpecialType), id); err != nil {
			return err
		}
	}
	if patch.DisplayName != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE fields SET display_name = ? WHERE id = ?`, *patch.DisplayName, id); err != nil {
			return err
		}
	}
	if patch.PreviewDisplay != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE fields SET preview_display = ? WHERE id = ?`, *patch.PreviewDisplay, id); err != nil {
			return err
		}
	}
	if patch.Description != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE fields SET description = ? WHERE id = ?`, *patch.Description, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeactivateFields(ctx context.Context, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalogstore/sqlite: deactivate fields: %w", err)
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE fields SET active = 0 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("catalogstore/sqlite: deactivate field %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) FindField(ctx context.Context, tableID int64, parentID *int64, name string) (*catalog.Field, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, table_id, parent_id, name, base_type, special_type, display_name,
		       preview_display, active, description
		FROM fields WHERE table_id = ? AND parent_id IS ? AND name = ?
	`, tableID, parentID, name)
	f, err := scanField(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: find field %s: %w", name, err)
	}
	return f, nil
}

func (s *Store) FindFieldByTableName(ctx context.Context, dbID int64, tableName, fieldName string) (*catalog.Field, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT f.id, f.table_id, f.parent_id, f.name, f.base_type, f.special_type, f.display_name,
		       f.preview_display, f.active, f.description
		FROM fields f
		JOIN tables t ON t.id = f.table_id
		WHERE t.db_id = ? AND t.name = ? AND f.parent_id IS NULL AND f.name = ?
	`, dbID, tableName, fieldName)
	f, err := scanField(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalogstore/sqlite: find field %s.%s: %w", tableName, fieldName, err)
	}
	return f, nil
}

func (s *Store) CreateForeignKey(ctx context.Context, fk *catalog.ForeignKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO foreign_keys (origin_field_id, destination_field_id, relationship) VALUES (?, ?, ?)
	`, fk.OriginFieldID, fk.DestinationFieldID, string(fk.Relationship))
	if err != nil {
		return fmt.Errorf("catalogstore/sqlite: create foreign key: %w", err)
	}
	return nil
}

func (s *Store) FieldDistinctCount(ctx context.Context, field *catalog.Field, cap int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT distinct_count FROM fields WHERE id = ?`, field.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("catalogstore/sqlite: distinct count %s: %w", field.Name, err)
	}
	if cap > 0 && n > cap {
		return cap, nil
	}
	return n, nil
}

func (s *Store) TableRowCount(ctx context.Context, table *catalog.Table) (int64, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT rows FROM tables WHERE id = ?`, table.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("catalogstore/sqlite: row count %s: %w", table.Name, err)
	}
	return n.Int64, nil
}

func (s *Store) ShouldHaveFieldValues(ctx context.Context, field *catalog.Field) (bool, error) {
	var v bool
	err := s.db.QueryRowContext(ctx, `SELECT should_have_field_values FROM fields WHERE id = ?`, field.ID).Scan(&v)
	if err != nil {
		return false, fmt.Errorf("catalogstore/sqlite: should-have-values %s: %w", field.Name, err)
	}
	return v, nil
}

func (s *Store) RefreshFieldValues(ctx context.Context, field *catalog.Field) error {
	_, err := s.db.ExecContext(ctx, `UPDATE fields SET refresh_count = refresh_count + 1 WHERE id = ?`, field.ID)
	if err != nil {
		return fmt.Errorf("catalogstore/sqlite: refresh field values %s: %w", field.Name, err)
	}
	return nil
}

func (s *Store) NameToHumanReadable(name string) string {
	return catalog.Humanize(name)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTable(row scanner) (*catalog.Table, error) {
	var t catalog.Table
	var schemaName sql.NullString
	var displayName sql.NullString
	var rows sql.NullInt64
	var activeInt, showInGettingStarted int
	if err := row.Scan(&t.ID, &t.DBID, &schemaName, &t.Name, &displayName, &activeInt, &rows,
		&t.Description, &t.Caveats, &t.PointsOfInterest, &t.EntityType, &showInGettingStarted); err != nil {
		return nil, err
	}
	if schemaName.Valid {
		t.Schema = &schemaName.String
	}
	if displayName.Valid {
		t.DisplayName = &displayName.String
	}
	if rows.Valid {
		t.Rows = &rows.Int64
	}
	t.Active = activeInt != 0
	t.ShowInGettingStarted = showInGettingStarted != 0
	return &t, nil
}

func scanField(row scanner) (*catalog.Field, error) {
	var f catalog.Field
	var parentID sql.NullInt64
	var specialType sql.NullString
	var displayName sql.NullString
	var baseType string
	var previewInt, activeInt int
	if err := row.Scan(&f.ID, &f.TableID, &parentID, &f.Name, &baseType, &specialType, &displayName,
		&previewInt, &activeInt, &f.Description); err != nil {
		return nil, err
	}
	f.BaseType = catalog.BaseType(baseType)
	if parentID.Valid {
		f.ParentID = &parentID.Int64
	}
	if specialType.Valid {
		st := catalog.SpecialType(specialType.String)
		f.SpecialType = &st
	}
	if displayName.Valid {
		f.DisplayName = &displayName.String
	}
	f.PreviewDisplay = previewInt != 0
	f.Active = activeInt != 0
	return &f, nil
}

func specialTypeValue(st *catalog.SpecialType) any {
	if st == nil {
		return nil
	}
	return string(*st)
}
