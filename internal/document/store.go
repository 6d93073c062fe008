package document

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("document: not found")

// Store is the SQLite-backed reference implementation of Document.
// The database file is the host document; opening an empty path creates
// a fresh, empty document.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a document file and runs schema migration.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("document: create dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("document: open database: %w", err)
	}

	// SQLite pragmas: WAL for durability, foreign keys for the tag/host
	// and placement links.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("document: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("document: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS elements (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			category     TEXT    NOT NULL,
			name         TEXT    NOT NULL DEFAULT '',
			has_bbox     INTEGER NOT NULL DEFAULT 1,
			min_x REAL, min_y REAL, min_z REAL,
			max_x REAL, max_y REAL, max_z REAL,
			diameter     REAL,
			length       REAL,
			warning      TEXT    NOT NULL DEFAULT '',
			host_id      INTEGER REFERENCES elements(id) ON DELETE SET NULL,
			text_content TEXT    NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS parameters (
			element_id INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
			name       TEXT    NOT NULL,
			kind       TEXT    NOT NULL,
			text_value TEXT,
			int_value  INTEGER,
			PRIMARY KEY (element_id, name)
		);

		CREATE TABLE IF NOT EXISTS title_blocks (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			family    TEXT NOT NULL UNIQUE,
			type_name TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS views (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			name            TEXT    NOT NULL UNIQUE,
			kind            TEXT    NOT NULL,
			is_template     INTEGER NOT NULL DEFAULT 0,
			discipline      TEXT    NOT NULL DEFAULT '',
			scale           INTEGER NOT NULL DEFAULT 100,
			template_id     INTEGER REFERENCES views(id),
			crop_active     INTEGER NOT NULL DEFAULT 0,
			crop_min_x REAL, crop_min_y REAL, crop_min_z REAL,
			crop_max_x REAL, crop_max_y REAL, crop_max_z REAL,
			section_active  INTEGER NOT NULL DEFAULT 0,
			sect_min_x REAL, sect_min_y REAL, sect_min_z REAL,
			sect_max_x REAL, sect_max_y REAL, sect_max_z REAL,
			duplicated_from INTEGER REFERENCES views(id),
			with_detailing  INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS sheets (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			number         TEXT    NOT NULL UNIQUE,
			name           TEXT    NOT NULL DEFAULT '',
			title_block_id INTEGER NOT NULL REFERENCES title_blocks(id)
		);

		CREATE TABLE IF NOT EXISTS viewports (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			sheet_id INTEGER NOT NULL REFERENCES sheets(id) ON DELETE CASCADE,
			view_id  INTEGER NOT NULL REFERENCES views(id) ON DELETE CASCADE,
			x REAL NOT NULL, y REAL NOT NULL,
			UNIQUE (sheet_id, view_id)
		);

		CREATE TABLE IF NOT EXISTS schedules (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT    NOT NULL UNIQUE,
			is_master    INTEGER NOT NULL DEFAULT 0,
			master_id    INTEGER REFERENCES schedules(id),
			base_code    TEXT    NOT NULL DEFAULT '',
			filter_field TEXT    NOT NULL DEFAULT '',
			filter_op    TEXT    NOT NULL DEFAULT '',
			filter_value TEXT    NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS schedule_instances (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			sheet_id    INTEGER NOT NULL REFERENCES sheets(id) ON DELETE CASCADE,
			schedule_id INTEGER NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
			x REAL NOT NULL, y REAL NOT NULL,
			UNIQUE (sheet_id, schedule_id)
		);

		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_elements_category ON elements(category);
		CREATE INDEX IF NOT EXISTS idx_elements_host ON elements(host_id);
		CREATE INDEX IF NOT EXISTS idx_schedules_master ON schedules(master_id, base_code);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Begin opens a document transaction.
func (s *Store) Begin() (Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("document: begin: %w", err)
	}
	return &storeTx{tx: tx}, nil
}

// ─── Seeding API ─────────────────────────────────────────────────────────────
//
// The host application owns document content; these methods stand in for it
// when populating a document (fixtures, demos, migrations from other tools).
// They write directly, outside the automation's transaction boundary.

// AddElement inserts an element and returns its assigned ID.
func (s *Store) AddElement(e Element) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO elements
			(category, name, has_bbox, min_x, min_y, min_z, max_x, max_y, max_z,
			 diameter, length, warning, host_id, text_content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Category), e.Name, boolToInt(e.BBox != nil),
		boxField(e.BBox, 0), boxField(e.BBox, 1), boxField(e.BBox, 2),
		boxField(e.BBox, 3), boxField(e.BBox, 4), boxField(e.BBox, 5),
		e.Diameter, e.Length, e.Warning, e.HostID, e.Text,
	)
	if err != nil {
		return 0, fmt.Errorf("document: add element: %w", err)
	}
	return res.LastInsertId()
}

// AddView inserts a view and returns its assigned ID.
func (s *Store) AddView(v View) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO views (name, kind, is_template, discipline, scale, template_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.Name, string(v.Kind), boolToInt(v.IsTemplate), v.Discipline, v.Scale, v.TemplateID,
	)
	if err != nil {
		return 0, fmt.Errorf("document: add view: %w", err)
	}
	return res.LastInsertId()
}

// AddTitleBlock inserts a title-block type and returns its assigned ID.
func (s *Store) AddTitleBlock(family, typeName string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO title_blocks (family, type_name) VALUES (?, ?)`,
		family, typeName,
	)
	if err != nil {
		return 0, fmt.Errorf("document: add title block: %w", err)
	}
	return res.LastInsertId()
}

// AddMasterSchedule inserts a master schedule and returns its assigned ID.
func (s *Store) AddMasterSchedule(name string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO schedules (name, is_master) VALUES (?, 1)`, name,
	)
	if err != nil {
		return 0, fmt.Errorf("document: add master schedule: %w", err)
	}
	return res.LastInsertId()
}

// SetActiveView marks the document's active view.
func (s *Store) SetActiveView(id int64) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES ('active_view', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprintf("%d", id),
	)
	if err != nil {
		return fmt.Errorf("document: set active view: %w", err)
	}
	return nil
}

// SeedTextParam writes a text parameter outside the automation transaction.
func (s *Store) SeedTextParam(id int64, name, value string) error {
	return setTextParam(s.db, id, name, value)
}

// SeedIntParam writes an integer parameter outside the automation transaction.
func (s *Store) SeedIntParam(id int64, name string, value int64) error {
	return setIntParam(s.db, id, name, value)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// boxField flattens an optional box into its i-th coordinate for binding
// (0..2 = min XYZ, 3..5 = max XYZ); nil boxes bind NULL.
func boxField(b *Box, i int) any {
	if b == nil {
		return nil
	}
	switch i {
	case 0:
		return b.Min.X
	case 1:
		return b.Min.Y
	case 2:
		return b.Min.Z
	case 3:
		return b.Max.X
	case 4:
		return b.Max.Y
	default:
		return b.Max.Z
	}
}
