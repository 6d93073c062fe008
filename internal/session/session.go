// Package session holds the review working set between boundary
// collection and commit. Everything here is in-memory: code edits,
// staged tags, text notes and fitting fixes accumulate as named,
// undoable actions and only touch the document when the orchestrator
// applies them inside its transaction.
package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bvdk-tools/prefabgen/internal/codes"
	"github.com/bvdk-tools/prefabgen/internal/collector"
	"github.com/bvdk-tools/prefabgen/internal/document"
	"github.com/bvdk-tools/prefabgen/internal/geometry"
)

// Row is one working-set entry. ElementID is negative for rows staged
// by AddTag that do not exist in the document yet.
type Row struct {
	ElementID int64
	Category  document.Category
	Name      string
	Center    geometry.Point
	Diameter  *float64
	Length    *float64
	Warning   string
	HostID    *int64

	// DefaultCode is the last computed assignment; Code is what will be
	// written at commit. Dirty marks a manual edit that AutoFill must
	// not overwrite.
	DefaultCode string
	Code        string
	Dirty       bool

	// Pending marks a row whose element is created only at commit.
	Pending bool
}

// Action describes one staged, undoable step.
type Action struct {
	Name   string
	Detail string
}

type stagedAction struct {
	Action
	restore func()
	apply   func(tx document.Tx) error
}

// Session is the active review working set. Not safe for concurrent
// use; the tool layer serializes access.
type Session struct {
	ID     string
	Bounds geometry.Box

	prefixKeyword string
	policy        codes.PairingPolicy

	seedText string
	rows     []Row
	actions  []stagedAction

	nextPending int64

	// pendingReal maps staged tag row IDs to the element IDs created
	// for them during apply.
	pendingReal map[int64]int64
}

// New builds a session over collected candidates. Row order follows the
// candidates' spatial order; staged tags append at the end.
func New(candidates []collector.Candidate, prefixKeyword string, policy codes.PairingPolicy) *Session {
	s := &Session{
		ID:            uuid.NewString(),
		Bounds:        collector.RegionBounds(candidates),
		prefixKeyword: prefixKeyword,
		policy:        policy,
		nextPending:   -1,
		pendingReal:   make(map[int64]int64),
	}
	for _, c := range candidates {
		s.rows = append(s.rows, Row{
			ElementID: c.Element.ID,
			Category:  c.Element.Category,
			Name:      c.Element.Name,
			Center:    c.Center,
			Diameter:  c.Element.Diameter,
			Length:    c.Element.Length,
			Warning:   c.Element.Warning,
			HostID:    c.Element.HostID,
		})
	}
	return s
}

// Rows returns a copy of the working set.
func (s *Session) Rows() []Row {
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// SeedText returns the seed AutoFill last accepted.
func (s *Session) SeedText() string { return s.seedText }

func (s *Session) rowIndex(id int64) int {
	for i := range s.rows {
		if s.rows[i].ElementID == id {
			return i
		}
	}
	return -1
}

// StageCodeEdit overrides one row's code by hand and marks it dirty.
func (s *Session) StageCodeEdit(id int64, code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("session: code must not be empty")
	}
	i := s.rowIndex(id)
	if i < 0 {
		return fmt.Errorf("session: no row for element %d", id)
	}
	if s.rows[i].Category == document.CategoryTextNote {
		return fmt.Errorf("session: text notes do not carry codes")
	}

	prev := s.rows[i]
	s.rows[i].Code = code
	s.rows[i].Dirty = true
	s.push(stagedAction{
		Action: Action{
			Name:   "code_edit",
			Detail: fmt.Sprintf("element %d: %q", id, code),
		},
		restore: func() { s.rows[i] = prev },
	})
	return nil
}

// AutoFill parses the seed and computes the code assignment for the
// whole working set. Manual edits survive unless overwrite is set.
func (s *Session) AutoFill(seedText string, overwrite bool) error {
	seed, err := codes.ParseSeed(seedText, s.prefixKeyword)
	if err != nil {
		return err
	}

	members := make([]codes.Member, 0, len(s.rows))
	for _, r := range s.rows {
		members = append(members, codes.Member{
			ID:       r.ElementID,
			Category: r.Category,
			HostID:   r.HostID,
		})
	}
	assignment := codes.Assign(seed, members, s.policy)

	prevRows := s.Rows()
	prevSeed := s.seedText
	s.seedText = seedText
	for i := range s.rows {
		code, ok := assignment.Code(s.rows[i].ElementID)
		if !ok {
			continue
		}
		s.rows[i].DefaultCode = code
		if overwrite || !s.rows[i].Dirty {
			s.rows[i].Code = code
			s.rows[i].Dirty = false
		}
	}

	s.push(stagedAction{
		Action: Action{
			Name:   "autofill",
			Detail: fmt.Sprintf("seed %q, base %s", seedText, assignment.Base),
		},
		restore: func() {
			s.rows = prevRows
			s.seedText = prevSeed
		},
	})
	return nil
}

// AddTag stages a tag for a taggable element that has none in the
// working set. The new row mirrors the host's code and the tag element
// itself is created at commit.
func (s *Session) AddTag(hostID int64) (Row, error) {
	i := s.rowIndex(hostID)
	if i < 0 {
		return Row{}, fmt.Errorf("session: no row for element %d", hostID)
	}
	host := s.rows[i]
	if !host.Category.IsTaggable() {
		return Row{}, fmt.Errorf("session: %s element %d cannot be tagged", host.Category, hostID)
	}
	for _, r := range s.rows {
		if r.Category == document.CategoryTag && r.HostID != nil && *r.HostID == hostID {
			return Row{}, fmt.Errorf("session: element %d already has a tag", hostID)
		}
	}

	rowID := s.nextPending
	s.nextPending--
	hid := hostID
	row := Row{
		ElementID:   rowID,
		Category:    document.CategoryTag,
		Name:        host.Name + " Tag",
		Center:      host.Center,
		HostID:      &hid,
		DefaultCode: host.Code,
		Code:        host.Code,
		Pending:     true,
	}
	s.rows = append(s.rows, row)

	at := host.Center
	s.push(stagedAction{
		Action: Action{
			Name:   "add_tag",
			Detail: fmt.Sprintf("tag element %d", hostID),
		},
		restore: func() { s.removeRow(rowID) },
		apply: func(tx document.Tx) error {
			realID, err := tx.CreateTag(hostID, at)
			if err != nil {
				return err
			}
			s.pendingReal[rowID] = realID
			return nil
		},
	})
	return row, nil
}

// RemoveTag stages deletion of an existing tag and drops its row. A
// pending tag cannot be removed this way; undo the add instead.
func (s *Session) RemoveTag(id int64) error {
	i := s.rowIndex(id)
	if i < 0 {
		return fmt.Errorf("session: no row for element %d", id)
	}
	row := s.rows[i]
	if row.Category != document.CategoryTag {
		return fmt.Errorf("session: element %d is a %s, not a tag", id, row.Category)
	}
	if row.Pending {
		return fmt.Errorf("session: tag %d is staged, undo the add instead", id)
	}

	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	s.push(stagedAction{
		Action: Action{
			Name:   "remove_tag",
			Detail: fmt.Sprintf("delete tag %d", id),
		},
		restore: func() {
			s.rows = append(s.rows, Row{})
			copy(s.rows[i+1:], s.rows[i:])
			s.rows[i] = row
		},
		apply: func(tx document.Tx) error {
			return tx.DeleteElement(id)
		},
	})
	return nil
}

// PlaceMissingTextNote stages a text note at the region's minimum
// corner. It reports false without staging anything when the working
// set already holds a text note.
func (s *Session) PlaceMissingTextNote(text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, fmt.Errorf("session: text note content must not be empty")
	}
	for _, r := range s.rows {
		if r.Category == document.CategoryTextNote {
			return false, nil
		}
	}

	rowID := s.nextPending
	s.nextPending--
	at := s.Bounds.Min
	s.rows = append(s.rows, Row{
		ElementID: rowID,
		Category:  document.CategoryTextNote,
		Name:      text,
		Center:    at,
		Pending:   true,
	})
	s.push(stagedAction{
		Action: Action{
			Name:   "place_text_note",
			Detail: fmt.Sprintf("%q at region corner", text),
		},
		restore: func() { s.removeRow(rowID) },
		apply: func(tx document.Tx) error {
			realID, err := tx.CreateTextNote(at, text)
			if err != nil {
				return err
			}
			s.pendingReal[rowID] = realID
			return nil
		},
	})
	return true, nil
}

const (
	paramBend45       = "2x45°"
	paramEccentric    = "reducer_eccentric"
	warningConcentric = "concentric"
)

// reducerFixParams are the writes the reducer fix performs, in order:
// short-run flags and the eccentric switch on, the legacy switch off.
var reducerFixParams = []struct {
	name  string
	value int64
}{
	{"kort_verloop (kleinste)", 1},
	{"kort_verloop (grootste)", 1},
	{paramEccentric, 1},
	{"switch_excentriciteit", 0},
}

// FixReducers stages the reducer parameter fix for every fitting row
// whose warning mentions a concentric problem, and turns the 2x45°
// flag off where set. Returns the number of fittings staged.
func (s *Session) FixReducers() int {
	var targets []int64
	for _, r := range s.rows {
		if r.Category != document.CategoryFitting {
			continue
		}
		if !strings.Contains(strings.ToLower(r.Warning), warningConcentric) {
			continue
		}
		targets = append(targets, r.ElementID)
	}
	if len(targets) == 0 {
		return 0
	}

	s.push(stagedAction{
		Action: Action{
			Name:   "fix_reducers",
			Detail: fmt.Sprintf("%d fitting(s)", len(targets)),
		},
		restore: func() {},
		apply: func(tx document.Tx) error {
			for _, id := range targets {
				for _, p := range reducerFixParams {
					if err := tx.SetIntParam(id, p.name, p.value); err != nil {
						return err
					}
				}
				if v, ok, err := tx.IntParam(id, paramBend45); err != nil {
					return err
				} else if ok && v == 1 {
					if err := tx.SetIntParam(id, paramBend45, 0); err != nil {
						return err
					}
				}
			}
			return nil
		},
	})
	return len(targets)
}

// ToggleFittingParameter stages a 0/1 flip of a named integer parameter
// on every fitting row. The eccentric switch is never turned off.
func (s *Session) ToggleFittingParameter(name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("session: parameter name must not be empty")
	}

	var targets []int64
	for _, r := range s.rows {
		if r.Category == document.CategoryFitting {
			targets = append(targets, r.ElementID)
		}
	}
	if len(targets) == 0 {
		return 0, fmt.Errorf("session: no fittings in the working set")
	}

	s.push(stagedAction{
		Action: Action{
			Name:   "toggle_fitting_parameter",
			Detail: fmt.Sprintf("%q on %d fitting(s)", name, len(targets)),
		},
		restore: func() {},
		apply: func(tx document.Tx) error {
			for _, id := range targets {
				v, _, err := tx.IntParam(id, name)
				if err != nil {
					return err
				}
				next := int64(1)
				if v == 1 {
					if name == paramEccentric {
						continue
					}
					next = 0
				}
				if err := tx.SetIntParam(id, name, next); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return len(targets), nil
}

// Actions lists the staged actions, oldest first.
func (s *Session) Actions() []Action {
	out := make([]Action, len(s.actions))
	for i, a := range s.actions {
		out[i] = a.Action
	}
	return out
}

// Undo pops the most recent action and restores the prior working-set
// state.
func (s *Session) Undo() (Action, error) {
	if len(s.actions) == 0 {
		return Action{}, fmt.Errorf("session: nothing to undo")
	}
	last := s.actions[len(s.actions)-1]
	s.actions = s.actions[:len(s.actions)-1]
	last.restore()
	return last.Action, nil
}

// ApplyStaged runs every staged document mutation, in order, against
// the transaction. In-memory-only actions are skipped.
func (s *Session) ApplyStaged(tx document.Tx) error {
	for _, a := range s.actions {
		if a.apply == nil {
			continue
		}
		if err := a.apply(tx); err != nil {
			return fmt.Errorf("apply %s (%s): %w", a.Name, a.Detail, err)
		}
	}
	return nil
}

// RealID resolves a row's element ID after ApplyStaged: pending rows
// map to the elements created for them, existing rows map to themselves.
func (s *Session) RealID(rowID int64) (int64, bool) {
	if rowID > 0 {
		return rowID, true
	}
	real, ok := s.pendingReal[rowID]
	return real, ok
}

func (s *Session) push(a stagedAction) {
	s.actions = append(s.actions, a)
}

func (s *Session) removeRow(id int64) {
	if i := s.rowIndex(id); i >= 0 {
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
	}
}
