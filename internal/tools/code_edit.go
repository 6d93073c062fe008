package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/session"
)

// StageCodeEditTool handles prefab_stage_code_edit: a manual override of
// one row's code.
type StageCodeEditTool struct {
	sessions *session.Manager
}

func NewStageCodeEditTool(sessions *session.Manager) *StageCodeEditTool {
	return &StageCodeEditTool{sessions: sessions}
}

func (t *StageCodeEditTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_stage_code_edit",
		mcp.WithDescription(
			"Override the code of one working-set row by hand. The row is "+
				"marked dirty and autofill will not overwrite it unless "+
				"explicitly told to.",
		),
		mcp.WithNumber("element_id",
			mcp.Required(),
			mcp.Description("The row's element ID."),
		),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("The code to write at commit. Must not be empty."),
		),
	)
}

func (t *StageCodeEditTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := int64Arg(req, "element_id")
	if !ok {
		return mcp.NewToolResultError("element_id is required"), nil
	}
	code := req.GetString("code", "")

	err := t.sessions.With(func(s *session.Session) error {
		return s.StageCodeEdit(id, code)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Element %d staged with code %q.", id, code)), nil
}
