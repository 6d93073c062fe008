package document

// Reader is the read side of the host document. Every method is safe to
// call outside a transaction; Tx embeds it so mid-transaction reads see
// the transaction's own writes.
type Reader interface {
	// ElementsByCategory enumerates non-type elements of the given
	// categories, in stable ID order. Empty categories means all four.
	ElementsByCategory(categories ...Category) ([]Element, error)

	// ElementByID returns the element or ErrNotFound.
	ElementByID(id int64) (*Element, error)

	// TagsForHost returns the tags whose host is the given element.
	TagsForHost(hostID int64) ([]Element, error)

	// TextParam reads a named text parameter ("" when unset).
	TextParam(id int64, name string) (string, error)

	// IntParam reads a named integer parameter; ok is false when unset.
	IntParam(id int64, name string) (value int64, ok bool, err error)

	// ActiveView returns the document's active view, or ErrNotFound when
	// none is set.
	ActiveView() (*View, error)

	// ViewByName returns the view with the exact name, or ErrNotFound.
	ViewByName(name string) (*View, error)

	// SheetByNumber returns the sheet with the exact number, or ErrNotFound.
	SheetByNumber(number string) (*Sheet, error)

	// ScheduleByName returns the schedule with the exact name, or ErrNotFound.
	ScheduleByName(name string) (*Schedule, error)

	// ScheduleForBaseCode returns the duplicate of master tagged with the
	// base code, or ErrNotFound.
	ScheduleForBaseCode(masterID int64, baseCode string) (*Schedule, error)

	// TitleBlockByName returns the title block with the family name, or
	// ErrNotFound.
	TitleBlockByName(family string) (*TitleBlock, error)

	// ViewportExists reports whether the view is already placed on the sheet.
	ViewportExists(sheetID, viewID int64) (bool, error)

	// ScheduleInstanceExists reports whether the schedule is already placed
	// on the sheet.
	ScheduleInstanceExists(sheetID, scheduleID int64) (bool, error)
}

// Document is the host document as the core sees it: reads plus the
// transaction boundary. All mutation goes through a Tx.
type Document interface {
	Reader

	// Begin opens the single atomic transaction a run executes in.
	Begin() (Tx, error)
}

// Tx is one atomic unit of document mutation. Either Commit applies every
// mutation or Rollback (and any abandoned Tx) applies none; the document
// is never left half-updated.
type Tx interface {
	Reader

	// --- element mutations ---

	// SetTextParam writes a named text parameter (the annotation field
	// writes go through this).
	SetTextParam(id int64, name, value string) error

	// SetIntParam writes a named integer parameter (fitting flags).
	SetIntParam(id int64, name string, value int64) error

	// CreateTag creates a tag hosted by the given element at a location.
	CreateTag(hostID int64, at Point) (int64, error)

	// DeleteElement removes an element (tag removal).
	DeleteElement(id int64) error

	// CreateTextNote creates a text note at a location.
	CreateTextNote(at Point, text string) (int64, error)

	// --- view mutations ---

	// DuplicateViewWithDetailing duplicates a plan view including its
	// detailing under a new unique name.
	DuplicateViewWithDetailing(sourceID int64, newName string) (*View, error)

	// RenameView renames a view; fails if the name is taken.
	RenameView(id int64, name string) error

	// SetViewCrop activates and sets the crop region of a plan view.
	SetViewCrop(id int64, crop Box) error

	// SetViewStyle sets discipline, scale and view template (0 = none).
	SetViewStyle(id int64, discipline string, scale int, templateID int64) error

	// CreateIsometricView creates a 3D isometric view under a unique name.
	CreateIsometricView(name string) (*View, error)

	// SetSectionBox activates and fits the section box of a 3D view.
	SetSectionBox(id int64, box Box) error

	// --- sheet and schedule mutations ---

	// CreateSheet creates a sheet with the given number, name and title block.
	CreateSheet(number, name string, titleBlockID int64) (*Sheet, error)

	// PlaceViewport places a view on a sheet.
	PlaceViewport(sheetID, viewID int64, x, y float64) error

	// DuplicateSchedule duplicates a master schedule under a new name,
	// tagging the duplicate with the base code it serves.
	DuplicateSchedule(masterID int64, newName, baseCode string) (*Schedule, error)

	// SetScheduleFilter replaces the schedule's filter.
	SetScheduleFilter(scheduleID int64, field, op, value string) error

	// PlaceSchedule places a schedule on a sheet.
	PlaceSchedule(sheetID, scheduleID int64, x, y float64) error

	Commit() error
	Rollback() error
}
