package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/session"
)

// SessionRowsTool handles prefab_session_rows: a read-only snapshot of
// the working set.
type SessionRowsTool struct {
	sessions *session.Manager
}

func NewSessionRowsTool(sessions *session.Manager) *SessionRowsTool {
	return &SessionRowsTool{sessions: sessions}
}

func (t *SessionRowsTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_session_rows",
		mcp.WithDescription(
			"List the rows of the active review session: every collected "+
				"element with its default and current code.",
		),
	)
}

func (t *SessionRowsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result *mcp.CallToolResult
	err := t.sessions.With(func(s *session.Session) error {
		var inner error
		result, inner = jsonResult(map[string]any{
			"session_id": s.ID,
			"seed":       s.SeedText(),
			"rows":       rowViews(s.Rows()),
		})
		return inner
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result, nil
}
