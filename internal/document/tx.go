package document

import (
	"database/sql"
	"fmt"
)

// storeTx implements Tx over a SQLite transaction. Reads go through the
// same helpers the Store uses, bound to the transaction, so every read
// sees the run's own uncommitted writes.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) Commit() error   { return t.tx.Commit() }
func (t *storeTx) Rollback() error { return t.tx.Rollback() }

// ─── Reads ───────────────────────────────────────────────────────────────────

func (t *storeTx) ElementsByCategory(categories ...Category) ([]Element, error) {
	return elementsByCategory(t.tx, categories)
}

func (t *storeTx) ElementByID(id int64) (*Element, error) { return elementByID(t.tx, id) }

func (t *storeTx) TagsForHost(hostID int64) ([]Element, error) { return tagsForHost(t.tx, hostID) }

func (t *storeTx) TextParam(id int64, name string) (string, error) {
	return textParam(t.tx, id, name)
}

func (t *storeTx) IntParam(id int64, name string) (int64, bool, error) {
	return intParam(t.tx, id, name)
}

func (t *storeTx) ActiveView() (*View, error) { return activeView(t.tx) }

func (t *storeTx) ViewByName(name string) (*View, error) { return viewByName(t.tx, name) }

func (t *storeTx) SheetByNumber(number string) (*Sheet, error) { return sheetByNumber(t.tx, number) }

func (t *storeTx) ScheduleByName(name string) (*Schedule, error) { return scheduleByName(t.tx, name) }

func (t *storeTx) ScheduleForBaseCode(masterID int64, baseCode string) (*Schedule, error) {
	return scheduleForBaseCode(t.tx, masterID, baseCode)
}

func (t *storeTx) TitleBlockByName(family string) (*TitleBlock, error) {
	return titleBlockByName(t.tx, family)
}

func (t *storeTx) ViewportExists(sheetID, viewID int64) (bool, error) {
	return viewportExists(t.tx, sheetID, viewID)
}

func (t *storeTx) ScheduleInstanceExists(sheetID, scheduleID int64) (bool, error) {
	return scheduleInstanceExists(t.tx, sheetID, scheduleID)
}

// ─── Element mutations ───────────────────────────────────────────────────────

func (t *storeTx) SetTextParam(id int64, name, value string) error {
	return setTextParam(t.tx, id, name, value)
}

func (t *storeTx) SetIntParam(id int64, name string, value int64) error {
	return setIntParam(t.tx, id, name, value)
}

func (t *storeTx) CreateTag(hostID int64, at Point) (int64, error) {
	host, err := elementByID(t.tx, hostID)
	if err != nil {
		return 0, fmt.Errorf("document: create tag: host: %w", err)
	}
	if !host.Category.IsTaggable() {
		return 0, fmt.Errorf("document: create tag: %s element %d is not taggable", host.Category, hostID)
	}

	res, err := t.tx.Exec(`
		INSERT INTO elements
			(category, name, has_bbox, min_x, min_y, min_z, max_x, max_y, max_z, host_id)
		VALUES (?, ?, 1, ?, ?, ?, ?, ?, ?, ?)`,
		string(CategoryTag), host.Name+" Tag",
		at.X, at.Y, at.Z, at.X, at.Y, at.Z, hostID,
	)
	if err != nil {
		return 0, fmt.Errorf("document: create tag for %d: %w", hostID, err)
	}
	return res.LastInsertId()
}

func (t *storeTx) DeleteElement(id int64) error {
	res, err := t.tx.Exec(`DELETE FROM elements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("document: delete element %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document: delete element %d: %w", id, ErrNotFound)
	}
	return nil
}

func (t *storeTx) CreateTextNote(at Point, text string) (int64, error) {
	res, err := t.tx.Exec(`
		INSERT INTO elements
			(category, has_bbox, min_x, min_y, min_z, max_x, max_y, max_z, text_content)
		VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?)`,
		string(CategoryTextNote), at.X, at.Y, at.Z, at.X, at.Y, at.Z, text,
	)
	if err != nil {
		return 0, fmt.Errorf("document: create text note: %w", err)
	}
	return res.LastInsertId()
}

// ─── View mutations ──────────────────────────────────────────────────────────

func (t *storeTx) DuplicateViewWithDetailing(sourceID int64, newName string) (*View, error) {
	src, err := viewByID(t.tx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("document: duplicate view: source: %w", err)
	}
	if src.Kind != ViewPlan {
		return nil, fmt.Errorf("document: duplicate view: %q is not a plan view", src.Name)
	}

	res, err := t.tx.Exec(`
		INSERT INTO views (name, kind, discipline, scale, duplicated_from, with_detailing)
		VALUES (?, ?, ?, ?, ?, 1)`,
		newName, string(src.Kind), src.Discipline, src.Scale, sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("document: duplicate view %q as %q: %w", src.Name, newName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return viewByID(t.tx, id)
}

func (t *storeTx) RenameView(id int64, name string) error {
	_, err := t.tx.Exec(`UPDATE views SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("document: rename view %d to %q: %w", id, name, err)
	}
	return nil
}

func (t *storeTx) SetViewCrop(id int64, crop Box) error {
	_, err := t.tx.Exec(`
		UPDATE views SET crop_active = 1,
			crop_min_x = ?, crop_min_y = ?, crop_min_z = ?,
			crop_max_x = ?, crop_max_y = ?, crop_max_z = ?
		WHERE id = ?`,
		crop.Min.X, crop.Min.Y, crop.Min.Z,
		crop.Max.X, crop.Max.Y, crop.Max.Z, id,
	)
	if err != nil {
		return fmt.Errorf("document: set crop of view %d: %w", id, err)
	}
	return nil
}

func (t *storeTx) SetViewStyle(id int64, discipline string, scale int, templateID int64) error {
	var tmpl any
	if templateID != 0 {
		tmpl = templateID
	}
	_, err := t.tx.Exec(
		`UPDATE views SET discipline = ?, scale = ?, template_id = ? WHERE id = ?`,
		discipline, scale, tmpl, id,
	)
	if err != nil {
		return fmt.Errorf("document: set style of view %d: %w", id, err)
	}
	return nil
}

func (t *storeTx) CreateIsometricView(name string) (*View, error) {
	res, err := t.tx.Exec(
		`INSERT INTO views (name, kind) VALUES (?, ?)`, name, string(View3D),
	)
	if err != nil {
		return nil, fmt.Errorf("document: create 3D view %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return viewByID(t.tx, id)
}

func (t *storeTx) SetSectionBox(id int64, box Box) error {
	_, err := t.tx.Exec(`
		UPDATE views SET section_active = 1,
			sect_min_x = ?, sect_min_y = ?, sect_min_z = ?,
			sect_max_x = ?, sect_max_y = ?, sect_max_z = ?
		WHERE id = ?`,
		box.Min.X, box.Min.Y, box.Min.Z,
		box.Max.X, box.Max.Y, box.Max.Z, id,
	)
	if err != nil {
		return fmt.Errorf("document: set section box of view %d: %w", id, err)
	}
	return nil
}

// ─── Sheet and schedule mutations ────────────────────────────────────────────

func (t *storeTx) CreateSheet(number, name string, titleBlockID int64) (*Sheet, error) {
	if _, err := titleBlockByID(t.tx, titleBlockID); err != nil {
		return nil, fmt.Errorf("document: create sheet %q: title block: %w", number, err)
	}
	res, err := t.tx.Exec(
		`INSERT INTO sheets (number, name, title_block_id) VALUES (?, ?, ?)`,
		number, name, titleBlockID,
	)
	if err != nil {
		return nil, fmt.Errorf("document: create sheet %q: %w", number, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Sheet{ID: id, Number: number, Name: name, TitleBlockID: titleBlockID}, nil
}

// titleBlockByID looks a title block up by ID (the create path already
// resolved the name to an ID during validation).
func titleBlockByID(db dbtx, id int64) (*TitleBlock, error) {
	var tb TitleBlock
	err := db.QueryRow(
		`SELECT id, family, type_name FROM title_blocks WHERE id = ?`, id,
	).Scan(&tb.ID, &tb.Family, &tb.TypeName)
	if err != nil {
		return nil, ErrNotFound
	}
	return &tb, nil
}

func (t *storeTx) PlaceViewport(sheetID, viewID int64, x, y float64) error {
	_, err := t.tx.Exec(
		`INSERT INTO viewports (sheet_id, view_id, x, y) VALUES (?, ?, ?, ?)`,
		sheetID, viewID, x, y,
	)
	if err != nil {
		return fmt.Errorf("document: place view %d on sheet %d: %w", viewID, sheetID, err)
	}
	return nil
}

func (t *storeTx) DuplicateSchedule(masterID int64, newName, baseCode string) (*Schedule, error) {
	res, err := t.tx.Exec(`
		INSERT INTO schedules (name, is_master, master_id, base_code)
		VALUES (?, 0, ?, ?)`,
		newName, masterID, baseCode,
	)
	if err != nil {
		return nil, fmt.Errorf("document: duplicate schedule %d as %q: %w", masterID, newName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	row := t.tx.QueryRow(fmt.Sprintf(`SELECT %s FROM schedules WHERE id = ?`, scheduleColumns), id)
	sc, err := scanSchedule(row.Scan)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (t *storeTx) SetScheduleFilter(scheduleID int64, field, op, value string) error {
	_, err := t.tx.Exec(
		`UPDATE schedules SET filter_field = ?, filter_op = ?, filter_value = ? WHERE id = ?`,
		field, op, value, scheduleID,
	)
	if err != nil {
		return fmt.Errorf("document: set filter of schedule %d: %w", scheduleID, err)
	}
	return nil
}

func (t *storeTx) PlaceSchedule(sheetID, scheduleID int64, x, y float64) error {
	_, err := t.tx.Exec(
		`INSERT INTO schedule_instances (sheet_id, schedule_id, x, y) VALUES (?, ?, ?, ?)`,
		sheetID, scheduleID, x, y,
	)
	if err != nil {
		return fmt.Errorf("document: place schedule %d on sheet %d: %w", scheduleID, sheetID, err)
	}
	return nil
}
