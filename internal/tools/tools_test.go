package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/config"
	"github.com/bvdk-tools/prefabgen/internal/document"
	"github.com/bvdk-tools/prefabgen/internal/geometry"
	"github.com/bvdk-tools/prefabgen/internal/orchestrator"
	"github.com/bvdk-tools/prefabgen/internal/session"
)

// --- Test helpers ---

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// env bundles a populated document with the session manager and tools.
type env struct {
	store    *document.Store
	cfg      config.Config
	sessions *session.Manager
	pipes    []int64
}

// newEnv builds a document with an active plan view, title block, master
// schedules, and two pipes inside the unit-10 square.
func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := document.Open(filepath.Join(t.TempDir(), "doc.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	e := &env{store: store, cfg: config.Default(), sessions: session.NewManager()}

	active, err := store.AddView(document.View{Name: "Level 1", Kind: document.ViewPlan})
	if err != nil {
		t.Fatalf("add view: %v", err)
	}
	if err := store.SetActiveView(active); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if _, err := store.AddTitleBlock("A1 Metric", "A1"); err != nil {
		t.Fatalf("add title block: %v", err)
	}
	for _, name := range e.cfg.MasterScheduleNames {
		if _, err := store.AddMasterSchedule(name); err != nil {
			t.Fatalf("add master: %v", err)
		}
	}

	for _, x := range []float64{2, 7} {
		b := geometry.Box{
			Min: geometry.Point{X: x - 0.5, Y: 4.5},
			Max: geometry.Point{X: x + 0.5, Y: 5.5, Z: 1},
		}
		id, err := store.AddElement(document.Element{Category: document.CategoryPipe, Name: "P", BBox: &b})
		if err != nil {
			t.Fatalf("add pipe: %v", err)
		}
		e.pipes = append(e.pipes, id)
	}
	return e
}

// squareSegments is a closed 10x10 boundary in shuffled order.
func squareSegments() []any {
	return []any{
		[]any{10.0, 10.0, 0.0, 10.0},
		[]any{0.0, 0.0, 10.0, 0.0},
		[]any{0.0, 10.0, 0.0, 0.0},
		[]any{10.0, 0.0, 10.0, 10.0},
	}
}

func (e *env) selectBoundary(t *testing.T) {
	t.Helper()
	tool := NewSelectBoundaryTool(e.store, e.cfg, e.sessions)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"segments": squareSegments()}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("select boundary: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("select boundary errored: %s", getResultText(result))
	}
}

func (e *env) autofill(t *testing.T, seed string) {
	t.Helper()
	tool := NewAutoFillTool(e.sessions)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"seed": seed}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("autofill: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("autofill errored: %s", getResultText(result))
	}
}

// --- SelectBoundaryTool ---

func TestSelectBoundary_OpensSession(t *testing.T) {
	e := newEnv(t)
	e.selectBoundary(t)

	var payload struct {
		SessionID string    `json:"session_id"`
		Rows      []rowView `json:"rows"`
	}
	rows := NewSessionRowsTool(e.sessions)
	result, err := rows.Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("session rows: %v", err)
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &payload); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(payload.Rows) != 2 {
		t.Errorf("got %d rows, want 2 pipes", len(payload.Rows))
	}
}

func TestSelectBoundary_OpenLoopRejected(t *testing.T) {
	e := newEnv(t)
	tool := NewSelectBoundaryTool(e.store, e.cfg, e.sessions)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"segments": []any{
			[]any{0.0, 0.0, 10.0, 0.0},
			[]any{10.0, 0.0, 10.0, 10.0},
		},
	}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("open loop accepted")
	}
	if !strings.Contains(getResultText(result), "closed boundary") {
		t.Errorf("unexpected message: %s", getResultText(result))
	}
}

func TestSelectBoundary_SecondSessionRefused(t *testing.T) {
	e := newEnv(t)
	e.selectBoundary(t)

	tool := NewSelectBoundaryTool(e.store, e.cfg, e.sessions)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"segments": squareSegments()}
	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("second session accepted while one is active")
	}
}

// --- AutoFill and edits ---

func TestAutoFill_BadSeedIsToolError(t *testing.T) {
	e := newEnv(t)
	e.selectBoundary(t)

	tool := NewAutoFillTool(e.sessions)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"seed": "definitely not a seed"}
	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("bad seed accepted")
	}
}

func TestStageCodeEdit_RequiresSession(t *testing.T) {
	e := newEnv(t)
	tool := NewStageCodeEditTool(e.sessions)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"element_id": float64(1), "code": "9.9"}
	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "no active session") {
		t.Errorf("want no-active-session error, got: %s", getResultText(result))
	}
}

func TestAddTagAndUndo(t *testing.T) {
	e := newEnv(t)
	e.selectBoundary(t)
	e.autofill(t, "prefab 5.5.5")

	add := NewAddTagTool(e.sessions)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"element_id": float64(e.pipes[0])}
	result, err := add.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("add tag: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("add tag errored: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), "\"pending\": true") {
		t.Errorf("staged row not pending: %s", getResultText(result))
	}

	undo := NewUndoTool(e.sessions)
	result, err = undo.Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if isErrorResult(result) || !strings.Contains(getResultText(result), "add_tag") {
		t.Errorf("undo result: %s", getResultText(result))
	}
}

func TestActionsListsStagedSteps(t *testing.T) {
	e := newEnv(t)
	e.selectBoundary(t)
	e.autofill(t, "prefab 5.5.5")

	tool := NewActionsTool(e.sessions)
	result, err := tool.Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if !strings.Contains(getResultText(result), "autofill") {
		t.Errorf("actions output missing autofill: %s", getResultText(result))
	}
}

// --- Commit and cancel ---

func TestCommit_GeneratesBundleAndClosesSession(t *testing.T) {
	e := newEnv(t)
	e.selectBoundary(t)
	e.autofill(t, "prefab 5.5.5")

	runner := orchestrator.New(e.store, e.cfg)
	commit := NewCommitTool(runner, e.sessions)
	result, err := commit.Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("commit errored: %s", getResultText(result))
	}

	var payload orchestrator.Result
	if err := json.Unmarshal([]byte(getResultText(result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.SheetNumber != "5.5.5" {
		t.Errorf("sheet = %q, want 5.5.5", payload.SheetNumber)
	}

	// Session closed: rows tool now reports no active session.
	rows := NewSessionRowsTool(e.sessions)
	result, _ = rows.Handle(context.Background(), mcp.CallToolRequest{})
	if !isErrorResult(result) {
		t.Error("session still active after commit")
	}

	// And the document carries the bundle.
	if _, err := e.store.SheetByNumber("5.5.5"); err != nil {
		t.Errorf("sheet missing from document: %v", err)
	}
}

func TestCommit_WithoutSeedKeepsSessionOpen(t *testing.T) {
	e := newEnv(t)
	e.selectBoundary(t)

	runner := orchestrator.New(e.store, e.cfg)
	commit := NewCommitTool(runner, e.sessions)
	result, err := commit.Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("commit without seed accepted")
	}

	// Session survives a refused commit.
	rows := NewSessionRowsTool(e.sessions)
	result, _ = rows.Handle(context.Background(), mcp.CallToolRequest{})
	if isErrorResult(result) {
		t.Error("session lost after refused commit")
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	e := newEnv(t)
	e.selectBoundary(t)

	cancel := NewCancelTool(e.sessions)
	result, err := cancel.Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("cancel errored: %s", getResultText(result))
	}

	result, _ = cancel.Handle(context.Background(), mcp.CallToolRequest{})
	if !isErrorResult(result) {
		t.Error("second cancel accepted with no session")
	}
}

func TestPlaceTextNoteDefaultsToSeed(t *testing.T) {
	e := newEnv(t)
	e.selectBoundary(t)
	e.autofill(t, "prefab 5.5.5")

	tool := NewPlaceTextNoteTool(e.sessions)
	result, err := tool.Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("place note: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("place note errored: %s", getResultText(result))
	}

	// Second call is a no-op.
	result, _ = tool.Handle(context.Background(), mcp.CallToolRequest{})
	if isErrorResult(result) || !strings.Contains(getResultText(result), "already has") {
		t.Errorf("second placement: %s", getResultText(result))
	}
}
