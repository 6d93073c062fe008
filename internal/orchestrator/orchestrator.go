// Package orchestrator turns a reviewed session into the full prefab
// deliverable bundle: annotation codes, a cropped plan view, a 3D view,
// a numbered sheet with both views placed, and filtered schedule copies.
//
// The whole generation runs inside one document transaction. Validation
// happens before the transaction opens, so a refused run leaves no
// trace; any mid-pipeline failure rolls everything back.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/bvdk-tools/prefabgen/internal/codes"
	"github.com/bvdk-tools/prefabgen/internal/config"
	"github.com/bvdk-tools/prefabgen/internal/document"
	"github.com/bvdk-tools/prefabgen/internal/logger"
	"github.com/bvdk-tools/prefabgen/internal/session"
)

// Pipeline states.
const (
	StateIdle               = "idle"
	StateValidating         = "validating"
	StateWriting            = "writing"
	StateGeneratingViews    = "generating_views"
	StateGeneratingSheet    = "generating_sheet"
	StateFilteringSchedules = "filtering_schedules"
	StateCommitted          = "committed"
	StateFailed             = "failed"
)

const (
	eventValidate  = "validate"
	eventWrite     = "write"
	eventViews     = "views"
	eventSheet     = "sheet"
	eventSchedules = "schedules"
	eventCommit    = "commit"
	eventFail      = "fail"
)

// ScheduleResult is one master schedule's outcome.
type ScheduleResult struct {
	Name    string `json:"name"`
	Created bool   `json:"created"`
}

// Result is the generated bundle: what was made, what was reused, and
// the pipeline states traversed.
type Result struct {
	RunID        string           `json:"run_id"`
	BaseCode     string           `json:"base_code"`
	CodesWritten int              `json:"codes_written"`
	PlanView     string           `json:"plan_view"`
	PlanCreated  bool             `json:"plan_created"`
	IsoView      string           `json:"iso_view"`
	IsoCreated   bool             `json:"iso_created"`
	SheetNumber  string           `json:"sheet_number"`
	SheetName    string           `json:"sheet_name"`
	SheetCreated bool             `json:"sheet_created"`
	Schedules    []ScheduleResult `json:"schedules"`
	States       []string         `json:"states"`
}

// Runner drives the generation pipeline against one document.
type Runner struct {
	doc document.Document
	cfg config.Config
	log *zap.SugaredLogger

	// txHook wraps the opened transaction; tests inject failures here.
	txHook func(document.Tx) document.Tx
}

func New(doc document.Document, cfg config.Config) *Runner {
	return &Runner{
		doc: doc,
		cfg: cfg,
		log: logger.For("orchestrator"),
	}
}

func newMachine(result *Result) *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventValidate, Src: []string{StateIdle}, Dst: StateValidating},
			{Name: eventWrite, Src: []string{StateValidating}, Dst: StateWriting},
			{Name: eventViews, Src: []string{StateWriting}, Dst: StateGeneratingViews},
			{Name: eventSheet, Src: []string{StateGeneratingViews}, Dst: StateGeneratingSheet},
			{Name: eventSchedules, Src: []string{StateGeneratingSheet}, Dst: StateFilteringSchedules},
			{Name: eventCommit, Src: []string{StateFilteringSchedules}, Dst: StateCommitted},
			{Name: eventFail, Src: []string{
				StateValidating, StateWriting, StateGeneratingViews,
				StateGeneratingSheet, StateFilteringSchedules,
			}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				result.States = append(result.States, e.Dst)
			},
		},
	)
}

// Run generates the deliverable bundle for the session. The session's
// staged actions are applied first, then codes, views, sheet, and
// schedules, all in one transaction.
func (r *Runner) Run(ctx context.Context, s *session.Session) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	m := newMachine(result)

	if err := m.Event(ctx, eventValidate); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	seed, activeView, titleBlock, templateID, err := r.validate(s)
	if err != nil {
		_ = m.Event(ctx, eventFail)
		return nil, err
	}
	result.BaseCode = seed.Base

	tx, err := r.doc.Begin()
	if err != nil {
		_ = m.Event(ctx, eventFail)
		return nil, fmt.Errorf("orchestrator: begin transaction: %w", err)
	}
	if r.txHook != nil {
		tx = r.txHook(tx)
	}

	fail := func(stepErr error) (*Result, error) {
		state := m.Current()
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Errorw("rollback failed", "error", rbErr)
		}
		_ = m.Event(ctx, eventFail)
		r.log.Errorw("generation failed", "state", state, "base", seed.Base, "error", stepErr)
		return nil, &TransactionFailure{State: state, Err: stepErr}
	}

	if err := m.Event(ctx, eventWrite); err != nil {
		return fail(err)
	}
	if err := r.writeCodes(tx, s, result); err != nil {
		return fail(err)
	}

	if err := m.Event(ctx, eventViews); err != nil {
		return fail(err)
	}
	planView, isoView, err := r.generateViews(tx, s, seed.Base, activeView, templateID, result)
	if err != nil {
		return fail(err)
	}

	if err := m.Event(ctx, eventSheet); err != nil {
		return fail(err)
	}
	sheet, err := r.generateSheet(tx, seed.Base, titleBlock, planView, isoView, result)
	if err != nil {
		return fail(err)
	}

	if err := m.Event(ctx, eventSchedules); err != nil {
		return fail(err)
	}
	if err := r.filterSchedules(tx, seed.Base, sheet, result); err != nil {
		return fail(err)
	}

	if err := tx.Commit(); err != nil {
		state := m.Current()
		_ = m.Event(ctx, eventFail)
		return nil, &TransactionFailure{State: state, Err: err}
	}
	if err := m.Event(ctx, eventCommit); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	r.log.Infow("bundle generated",
		"run", result.RunID,
		"base", result.BaseCode,
		"codes", result.CodesWritten,
		"sheet", result.SheetNumber,
	)
	return result, nil
}

// validate checks everything the pipeline needs before any mutation:
// parseable seed, plan-type active view, and the configured title
// block, view template, and master schedules present in the document.
func (r *Runner) validate(s *session.Session) (codes.Seed, *document.View, *document.TitleBlock, int64, error) {
	seed, err := codes.ParseSeed(s.SeedText(), r.cfg.SeedPrefixKeyword)
	if err != nil {
		return codes.Seed{}, nil, nil, 0, err
	}

	active, err := r.doc.ActiveView()
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return codes.Seed{}, nil, nil, 0, &ViewContextError{Reason: "no active view"}
		}
		return codes.Seed{}, nil, nil, 0, err
	}
	if !active.IsPlan() {
		return codes.Seed{}, nil, nil, 0, &ViewContextError{
			ViewName: active.Name,
			Reason:   fmt.Sprintf("not a plan view (kind %s)", active.Kind),
		}
	}

	tb, err := r.doc.TitleBlockByName(r.cfg.SheetTitleBlock)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return codes.Seed{}, nil, nil, 0, &ConfigurationError{Kind: "title block", Name: r.cfg.SheetTitleBlock}
		}
		return codes.Seed{}, nil, nil, 0, err
	}

	var templateID int64
	if r.cfg.ViewTemplateName != "" {
		tmpl, err := r.doc.ViewByName(r.cfg.ViewTemplateName)
		if err != nil {
			if errors.Is(err, document.ErrNotFound) {
				return codes.Seed{}, nil, nil, 0, &ConfigurationError{Kind: "view template", Name: r.cfg.ViewTemplateName}
			}
			return codes.Seed{}, nil, nil, 0, err
		}
		if !tmpl.IsTemplate {
			return codes.Seed{}, nil, nil, 0, &ConfigurationError{Kind: "view template", Name: r.cfg.ViewTemplateName}
		}
		templateID = tmpl.ID
	}

	for _, name := range r.cfg.MasterScheduleNames {
		sched, err := r.doc.ScheduleByName(name)
		if err != nil {
			if errors.Is(err, document.ErrNotFound) {
				return codes.Seed{}, nil, nil, 0, &ConfigurationError{Kind: "master schedule", Name: name}
			}
			return codes.Seed{}, nil, nil, 0, err
		}
		if !sched.IsMaster {
			return codes.Seed{}, nil, nil, 0, &ConfigurationError{Kind: "master schedule", Name: name}
		}
	}

	return seed, active, tb, templateID, nil
}

// writeCodes applies the staged session actions and then writes each
// row's code to the annotation field. Staged rows resolve to the
// elements created for them.
func (r *Runner) writeCodes(tx document.Tx, s *session.Session, result *Result) error {
	if err := s.ApplyStaged(tx); err != nil {
		return err
	}

	for _, row := range s.Rows() {
		if row.Code == "" || row.Category == document.CategoryTextNote {
			continue
		}
		id, ok := s.RealID(row.ElementID)
		if !ok {
			return fmt.Errorf("staged row %d was never materialized", row.ElementID)
		}
		if err := tx.SetTextParam(id, r.cfg.AnnotationFieldName, row.Code); err != nil {
			return err
		}
		result.CodesWritten++
	}
	return nil
}

// generateViews reuses or creates the plan view named after the base
// code and the matching 3D view, cropped and boxed to the region.
func (r *Runner) generateViews(tx document.Tx, s *session.Session, base string, active *document.View, templateID int64, result *Result) (*document.View, *document.View, error) {
	plan, err := tx.ViewByName(base)
	switch {
	case err == nil:
		// Reuse; re-crop so a regrown region updates the extent.
		if err := tx.SetViewCrop(plan.ID, s.Bounds); err != nil {
			return nil, nil, err
		}
	case errors.Is(err, document.ErrNotFound):
		plan, err = tx.DuplicateViewWithDetailing(active.ID, base)
		if err != nil {
			return nil, nil, err
		}
		if err := tx.SetViewCrop(plan.ID, s.Bounds); err != nil {
			return nil, nil, err
		}
		if err := tx.SetViewStyle(plan.ID, r.cfg.ViewDiscipline, r.cfg.ViewScale, templateID); err != nil {
			return nil, nil, err
		}
		result.PlanCreated = true
	default:
		return nil, nil, err
	}
	result.PlanView = plan.Name

	isoName := base + " 3D"
	iso, err := tx.ViewByName(isoName)
	switch {
	case err == nil:
	case errors.Is(err, document.ErrNotFound):
		iso, err = tx.CreateIsometricView(isoName)
		if err != nil {
			return nil, nil, err
		}
		result.IsoCreated = true
	default:
		return nil, nil, err
	}
	if err := tx.SetSectionBox(iso.ID, s.Bounds); err != nil {
		return nil, nil, err
	}
	result.IsoView = iso.Name

	return plan, iso, nil
}

// generateSheet reuses or creates the sheet numbered with the base code
// and places both viewports, skipping placements that already exist.
func (r *Runner) generateSheet(tx document.Tx, base string, tb *document.TitleBlock, plan, iso *document.View, result *Result) (*document.Sheet, error) {
	sheet, err := tx.SheetByNumber(base)
	switch {
	case err == nil:
	case errors.Is(err, document.ErrNotFound):
		sheet, err = tx.CreateSheet(base, "Prefab "+base, tb.ID)
		if err != nil {
			return nil, err
		}
		result.SheetCreated = true
	default:
		return nil, err
	}
	result.SheetNumber = sheet.Number
	result.SheetName = sheet.Name

	place := func(view *document.View, at config.Placement) error {
		exists, err := tx.ViewportExists(sheet.ID, view.ID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return tx.PlaceViewport(sheet.ID, view.ID, at.X, at.Y)
	}
	if err := place(plan, r.cfg.PlanViewport); err != nil {
		return nil, err
	}
	if err := place(iso, r.cfg.IsoViewport); err != nil {
		return nil, err
	}
	return sheet, nil
}

// filterSchedules duplicates each master schedule for the base code (or
// reuses an earlier duplicate), filters it on the annotation field, and
// places it on the sheet, stacked downward in configuration order.
func (r *Runner) filterSchedules(tx document.Tx, base string, sheet *document.Sheet, result *Result) error {
	for i, masterName := range r.cfg.MasterScheduleNames {
		master, err := tx.ScheduleByName(masterName)
		if err != nil {
			return err
		}

		dup, err := tx.ScheduleForBaseCode(master.ID, base)
		created := false
		if errors.Is(err, document.ErrNotFound) {
			dup, err = tx.DuplicateSchedule(master.ID, masterName+" "+base, base)
			created = true
		}
		if err != nil {
			return err
		}
		if err := tx.SetScheduleFilter(dup.ID, r.cfg.AnnotationFieldName, document.FilterOpContains, base); err != nil {
			return err
		}

		exists, err := tx.ScheduleInstanceExists(sheet.ID, dup.ID)
		if err != nil {
			return err
		}
		if !exists {
			x := r.cfg.ScheduleOrigin.X
			y := r.cfg.ScheduleOrigin.Y - float64(i)*r.cfg.ScheduleSpacing
			if err := tx.PlaceSchedule(sheet.ID, dup.ID, x, y); err != nil {
				return err
			}
		}
		result.Schedules = append(result.Schedules, ScheduleResult{Name: dup.Name, Created: created})
	}
	return nil
}
