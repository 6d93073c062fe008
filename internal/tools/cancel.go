package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/session"
)

// CancelTool handles prefab_cancel: discards the active session without
// touching the document.
type CancelTool struct {
	sessions *session.Manager
}

func NewCancelTool(sessions *session.Manager) *CancelTool {
	return &CancelTool{sessions: sessions}
}

func (t *CancelTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_cancel",
		mcp.WithDescription(
			"Discard the active review session. Staged actions are dropped; "+
				"the document is untouched.",
		),
	)
}

func (t *CancelTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s := t.sessions.End()
	if s == nil {
		return mcp.NewToolResultError("no active session to cancel"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s cancelled; nothing was written.", s.ID)), nil
}
