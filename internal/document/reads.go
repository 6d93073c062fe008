package document

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the read helpers serve
// the Store and the transaction alike; mid-transaction reads then see the
// transaction's own writes.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const elementColumns = `
	id, category, name, has_bbox,
	min_x, min_y, min_z, max_x, max_y, max_z,
	diameter, length, warning, host_id, text_content`

func scanElement(scan func(dest ...any) error) (Element, error) {
	var (
		e        Element
		cat      string
		hasBBox  int64
		min, max [3]sql.NullFloat64
	)
	err := scan(
		&e.ID, &cat, &e.Name, &hasBBox,
		&min[0], &min[1], &min[2], &max[0], &max[1], &max[2],
		&e.Diameter, &e.Length, &e.Warning, &e.HostID, &e.Text,
	)
	if err != nil {
		return Element{}, err
	}
	e.Category = Category(cat)
	if hasBBox != 0 && min[0].Valid {
		e.BBox = &Box{
			Min: Point{X: min[0].Float64, Y: min[1].Float64, Z: min[2].Float64},
			Max: Point{X: max[0].Float64, Y: max[1].Float64, Z: max[2].Float64},
		}
	}
	return e, nil
}

func elementsByCategory(db dbtx, categories []Category) ([]Element, error) {
	if len(categories) == 0 {
		categories = AllCategories()
	}
	placeholders := make([]string, len(categories))
	args := make([]any, len(categories))
	for i, c := range categories {
		placeholders[i] = "?"
		args[i] = string(c)
	}

	rows, err := db.Query(fmt.Sprintf(
		`SELECT %s FROM elements WHERE category IN (%s) ORDER BY id`,
		elementColumns, strings.Join(placeholders, ","),
	), args...)
	if err != nil {
		return nil, fmt.Errorf("document: elements by category: %w", err)
	}
	defer rows.Close()

	var out []Element
	for rows.Next() {
		e, err := scanElement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("document: scan element: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func elementByID(db dbtx, id int64) (*Element, error) {
	row := db.QueryRow(fmt.Sprintf(
		`SELECT %s FROM elements WHERE id = ?`, elementColumns), id)
	e, err := scanElement(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document: element %d: %w", id, err)
	}
	return &e, nil
}

func tagsForHost(db dbtx, hostID int64) ([]Element, error) {
	rows, err := db.Query(fmt.Sprintf(
		`SELECT %s FROM elements WHERE category = ? AND host_id = ? ORDER BY id`,
		elementColumns), string(CategoryTag), hostID)
	if err != nil {
		return nil, fmt.Errorf("document: tags for host %d: %w", hostID, err)
	}
	defer rows.Close()

	var out []Element
	for rows.Next() {
		e, err := scanElement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("document: scan tag: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func textParam(db dbtx, id int64, name string) (string, error) {
	var v sql.NullString
	err := db.QueryRow(
		`SELECT text_value FROM parameters WHERE element_id = ? AND name = ? AND kind = 'text'`,
		id, name,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("document: text param %q of %d: %w", name, id, err)
	}
	return v.String, nil
}

func intParam(db dbtx, id int64, name string) (int64, bool, error) {
	var v sql.NullInt64
	err := db.QueryRow(
		`SELECT int_value FROM parameters WHERE element_id = ? AND name = ? AND kind = 'integer'`,
		id, name,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("document: int param %q of %d: %w", name, id, err)
	}
	return v.Int64, v.Valid, nil
}

const viewColumns = `
	id, name, kind, is_template, discipline, scale, template_id,
	crop_active, crop_min_x, crop_min_y, crop_min_z, crop_max_x, crop_max_y, crop_max_z,
	section_active, sect_min_x, sect_min_y, sect_min_z, sect_max_x, sect_max_y, sect_max_z,
	duplicated_from, with_detailing`

func scanView(scan func(dest ...any) error) (View, error) {
	var (
		v                View
		kind             string
		isTemplate       int64
		cropActive       int64
		sectActive       int64
		withDetail       int64
		cropMin, cropMax [3]sql.NullFloat64
		sectMin, sectMax [3]sql.NullFloat64
	)
	err := scan(
		&v.ID, &v.Name, &kind, &isTemplate, &v.Discipline, &v.Scale, &v.TemplateID,
		&cropActive, &cropMin[0], &cropMin[1], &cropMin[2], &cropMax[0], &cropMax[1], &cropMax[2],
		&sectActive, &sectMin[0], &sectMin[1], &sectMin[2], &sectMax[0], &sectMax[1], &sectMax[2],
		&v.DuplicatedFrom, &withDetail,
	)
	if err != nil {
		return View{}, err
	}
	v.Kind = ViewKind(kind)
	v.IsTemplate = isTemplate != 0
	v.CropActive = cropActive != 0
	v.WithDetailing = withDetail != 0
	if cropActive != 0 && cropMin[0].Valid {
		v.Crop = &Box{
			Min: Point{X: cropMin[0].Float64, Y: cropMin[1].Float64, Z: cropMin[2].Float64},
			Max: Point{X: cropMax[0].Float64, Y: cropMax[1].Float64, Z: cropMax[2].Float64},
		}
	}
	if sectActive != 0 && sectMin[0].Valid {
		v.SectionBox = &Box{
			Min: Point{X: sectMin[0].Float64, Y: sectMin[1].Float64, Z: sectMin[2].Float64},
			Max: Point{X: sectMax[0].Float64, Y: sectMax[1].Float64, Z: sectMax[2].Float64},
		}
	}
	return v, nil
}

func viewByID(db dbtx, id int64) (*View, error) {
	row := db.QueryRow(fmt.Sprintf(`SELECT %s FROM views WHERE id = ?`, viewColumns), id)
	v, err := scanView(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document: view %d: %w", id, err)
	}
	return &v, nil
}

func viewByName(db dbtx, name string) (*View, error) {
	row := db.QueryRow(fmt.Sprintf(`SELECT %s FROM views WHERE name = ?`, viewColumns), name)
	v, err := scanView(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document: view %q: %w", name, err)
	}
	return &v, nil
}

func activeView(db dbtx) (*View, error) {
	var raw string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = 'active_view'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document: active view: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("document: active view setting %q: %w", raw, err)
	}
	return viewByID(db, id)
}

func sheetByNumber(db dbtx, number string) (*Sheet, error) {
	var sh Sheet
	err := db.QueryRow(
		`SELECT id, number, name, title_block_id FROM sheets WHERE number = ?`, number,
	).Scan(&sh.ID, &sh.Number, &sh.Name, &sh.TitleBlockID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document: sheet %q: %w", number, err)
	}
	return &sh, nil
}

const scheduleColumns = `id, name, is_master, master_id, base_code, filter_field, filter_op, filter_value`

func scanSchedule(scan func(dest ...any) error) (Schedule, error) {
	var (
		sc       Schedule
		isMaster int64
	)
	err := scan(&sc.ID, &sc.Name, &isMaster, &sc.MasterID, &sc.BaseCode,
		&sc.FilterField, &sc.FilterOp, &sc.FilterValue)
	if err != nil {
		return Schedule{}, err
	}
	sc.IsMaster = isMaster != 0
	return sc, nil
}

func scheduleByName(db dbtx, name string) (*Schedule, error) {
	row := db.QueryRow(fmt.Sprintf(`SELECT %s FROM schedules WHERE name = ?`, scheduleColumns), name)
	sc, err := scanSchedule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document: schedule %q: %w", name, err)
	}
	return &sc, nil
}

func scheduleForBaseCode(db dbtx, masterID int64, baseCode string) (*Schedule, error) {
	row := db.QueryRow(fmt.Sprintf(
		`SELECT %s FROM schedules WHERE master_id = ? AND base_code = ?`, scheduleColumns),
		masterID, baseCode)
	sc, err := scanSchedule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document: schedule for base %q: %w", baseCode, err)
	}
	return &sc, nil
}

func titleBlockByName(db dbtx, family string) (*TitleBlock, error) {
	var tb TitleBlock
	err := db.QueryRow(
		`SELECT id, family, type_name FROM title_blocks WHERE family = ?`, family,
	).Scan(&tb.ID, &tb.Family, &tb.TypeName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document: title block %q: %w", family, err)
	}
	return &tb, nil
}

func viewportExists(db dbtx, sheetID, viewID int64) (bool, error) {
	var n int64
	err := db.QueryRow(
		`SELECT COUNT(*) FROM viewports WHERE sheet_id = ? AND view_id = ?`,
		sheetID, viewID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("document: viewport exists: %w", err)
	}
	return n > 0, nil
}

func scheduleInstanceExists(db dbtx, sheetID, scheduleID int64) (bool, error) {
	var n int64
	err := db.QueryRow(
		`SELECT COUNT(*) FROM schedule_instances WHERE sheet_id = ? AND schedule_id = ?`,
		sheetID, scheduleID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("document: schedule instance exists: %w", err)
	}
	return n > 0, nil
}

func setTextParam(db dbtx, id int64, name, value string) error {
	_, err := db.Exec(`
		INSERT INTO parameters (element_id, name, kind, text_value)
		VALUES (?, ?, 'text', ?)
		ON CONFLICT(element_id, name) DO UPDATE SET kind = 'text', text_value = excluded.text_value`,
		id, name, value,
	)
	if err != nil {
		return fmt.Errorf("document: set text param %q of %d: %w", name, id, err)
	}
	return nil
}

func setIntParam(db dbtx, id int64, name string, value int64) error {
	_, err := db.Exec(`
		INSERT INTO parameters (element_id, name, kind, int_value)
		VALUES (?, ?, 'integer', ?)
		ON CONFLICT(element_id, name) DO UPDATE SET kind = 'integer', int_value = excluded.int_value`,
		id, name, value,
	)
	if err != nil {
		return fmt.Errorf("document: set int param %q of %d: %w", name, id, err)
	}
	return nil
}

// ─── Store read methods ──────────────────────────────────────────────────────

func (s *Store) ElementsByCategory(categories ...Category) ([]Element, error) {
	return elementsByCategory(s.db, categories)
}

func (s *Store) ElementByID(id int64) (*Element, error) { return elementByID(s.db, id) }

func (s *Store) TagsForHost(hostID int64) ([]Element, error) { return tagsForHost(s.db, hostID) }

func (s *Store) TextParam(id int64, name string) (string, error) {
	return textParam(s.db, id, name)
}

func (s *Store) IntParam(id int64, name string) (int64, bool, error) {
	return intParam(s.db, id, name)
}

func (s *Store) ActiveView() (*View, error) { return activeView(s.db) }

func (s *Store) ViewByName(name string) (*View, error) { return viewByName(s.db, name) }

func (s *Store) SheetByNumber(number string) (*Sheet, error) { return sheetByNumber(s.db, number) }

func (s *Store) ScheduleByName(name string) (*Schedule, error) { return scheduleByName(s.db, name) }

func (s *Store) ScheduleForBaseCode(masterID int64, baseCode string) (*Schedule, error) {
	return scheduleForBaseCode(s.db, masterID, baseCode)
}

func (s *Store) TitleBlockByName(family string) (*TitleBlock, error) {
	return titleBlockByName(s.db, family)
}

func (s *Store) ViewportExists(sheetID, viewID int64) (bool, error) {
	return viewportExists(s.db, sheetID, viewID)
}

func (s *Store) ScheduleInstanceExists(sheetID, scheduleID int64) (bool, error) {
	return scheduleInstanceExists(s.db, sheetID, scheduleID)
}
