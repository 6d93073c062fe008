// Package document models the host building-design document that prefabgen
// automates against: elements with categories and parameters, plan and 3D
// views, sheets, schedules, and placements.
//
// The Document and Tx interfaces are the contract the core depends on
// (collector, session, orchestrator). Store is the reference implementation
// backed by SQLite, which supplies the real begin/commit/rollback semantics
// the orchestrator's all-or-nothing commit relies on. All durable state
// lives in the document file; prefabgen keeps no database of its own.
package document

import (
	"fmt"

	"github.com/bvdk-tools/prefabgen/internal/geometry"
)

// Point and Box alias the geometry types so the document API speaks the
// same coordinates the boundary engine does.
type (
	Point = geometry.Point
	Box   = geometry.Box
)

// ─── Categories ──────────────────────────────────────────────────────────────

// Category is the closed set of element kinds the automation works with.
// Dispatch on the variant, never on runtime type discovery.
type Category string

const (
	CategoryPipe     Category = "pipe"
	CategoryFitting  Category = "fitting"
	CategoryTag      Category = "tag"
	CategoryTextNote Category = "textnote"
)

// validCategories is the set of allowed categories.
var validCategories = map[Category]bool{
	CategoryPipe:     true,
	CategoryFitting:  true,
	CategoryTag:      true,
	CategoryTextNote: true,
}

// ParseCategory validates and returns a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !validCategories[c] {
		return "", fmt.Errorf("invalid category %q: must be one of: pipe, fitting, tag, textnote", s)
	}
	return c, nil
}

// HasDiameter reports whether elements of this category carry a diameter.
func (c Category) HasDiameter() bool {
	return c == CategoryPipe || c == CategoryFitting
}

// HasLength reports whether elements of this category carry a length.
func (c Category) HasLength() bool {
	return c == CategoryPipe || c == CategoryFitting
}

// IsTaggable reports whether elements of this category can host a tag.
func (c Category) IsTaggable() bool {
	return c == CategoryPipe
}

// AllCategories returns every category, in a fixed order.
func AllCategories() []Category {
	return []Category{CategoryPipe, CategoryFitting, CategoryTag, CategoryTextNote}
}

// ─── Elements ────────────────────────────────────────────────────────────────

// Element is a document element. The automation references elements by ID
// and mutates them through a Tx; it never works on diverging local copies.
type Element struct {
	ID       int64
	Category Category
	Name     string

	// BBox is nil when the element's geometry is unreadable. The collector
	// records such elements as soft warnings instead of failing the run.
	BBox *geometry.Box

	Diameter *float64
	Length   *float64
	Warning  string

	// HostID links a tag to the element it tags.
	HostID *int64

	// Text is the content of a text note.
	Text string
}

// Center returns the bounding-box center and whether geometry was readable.
func (e *Element) Center() (geometry.Point, bool) {
	if e.BBox == nil {
		return geometry.Point{}, false
	}
	return e.BBox.Center(), true
}

// ─── Views, sheets, schedules ────────────────────────────────────────────────

// ViewKind distinguishes plan views from 3D views.
type ViewKind string

const (
	ViewPlan ViewKind = "plan"
	View3D   ViewKind = "3d"
)

// View is a plan or 3D view. Crop applies to plan views, SectionBox to 3D.
type View struct {
	ID             int64
	Name           string
	Kind           ViewKind
	IsTemplate     bool
	Discipline     string
	Scale          int
	TemplateID     *int64
	CropActive     bool
	Crop           *geometry.Box
	SectionBox     *geometry.Box
	DuplicatedFrom *int64
	WithDetailing  bool
}

// IsPlan reports whether the view is a plan-type view. The orchestrator
// refuses to run when the active view is not one.
func (v *View) IsPlan() bool {
	return v.Kind == ViewPlan && !v.IsTemplate
}

// TitleBlock is a sheet title-block family type.
type TitleBlock struct {
	ID       int64
	Family   string
	TypeName string
}

// Sheet is a drawing sheet. Number doubles as the idempotency key: the
// orchestrator numbers sheets with the base code and reuses matches.
type Sheet struct {
	ID           int64
	Number       string
	Name         string
	TitleBlockID int64
}

// Schedule is a quantity schedule. Masters are configured by name;
// duplicates are tagged with the base code they were generated for.
type Schedule struct {
	ID          int64
	Name        string
	IsMaster    bool
	MasterID    *int64
	BaseCode    string
	FilterField string
	FilterOp    string
	FilterValue string
}

// FilterOpContains is the only filter operator the orchestrator applies:
// "annotation field contains base code".
const FilterOpContains = "contains"

// Viewport is a view placed on a sheet.
type Viewport struct {
	ID      int64
	SheetID int64
	ViewID  int64
	X, Y    float64
}

// ScheduleInstance is a schedule placed on a sheet.
type ScheduleInstance struct {
	ID         int64
	SheetID    int64
	ScheduleID int64
	X, Y       float64
}
