package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/session"
)

// ActionsTool handles prefab_actions: lists the staged actions.
type ActionsTool struct {
	sessions *session.Manager
}

func NewActionsTool(sessions *session.Manager) *ActionsTool {
	return &ActionsTool{sessions: sessions}
}

func (t *ActionsTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_actions",
		mcp.WithDescription(
			"List the staged actions of the active session, oldest first. "+
				"Nothing touches the document until commit.",
		),
	)
}

func (t *ActionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result *mcp.CallToolResult
	err := t.sessions.With(func(s *session.Session) error {
		type actionView struct {
			Name   string `json:"name"`
			Detail string `json:"detail"`
		}
		actions := s.Actions()
		views := make([]actionView, len(actions))
		for i, a := range actions {
			views[i] = actionView{Name: a.Name, Detail: a.Detail}
		}
		var inner error
		result, inner = jsonResult(map[string]any{"actions": views})
		return inner
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result, nil
}

// UndoTool handles prefab_undo: pops the latest staged action.
type UndoTool struct {
	sessions *session.Manager
}

func NewUndoTool(sessions *session.Manager) *UndoTool {
	return &UndoTool{sessions: sessions}
}

func (t *UndoTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_undo",
		mcp.WithDescription(
			"Undo the most recent staged action and restore the working "+
				"set to its prior state.",
		),
	)
}

func (t *UndoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var undone session.Action
	err := t.sessions.With(func(s *session.Session) error {
		var inner error
		undone, inner = s.Undo()
		return inner
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Undid %s (%s).", undone.Name, undone.Detail)), nil
}
