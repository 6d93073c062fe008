package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/session"
)

// FixReducersTool handles prefab_fix_reducers: stages the reducer
// parameter fix for fittings flagged with a concentric warning.
type FixReducersTool struct {
	sessions *session.Manager
}

func NewFixReducersTool(sessions *session.Manager) *FixReducersTool {
	return &FixReducersTool{sessions: sessions}
}

func (t *FixReducersTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_fix_reducers",
		mcp.WithDescription(
			"Stage the reducer fix for every fitting whose warning mentions "+
				"a concentric problem: short-run and eccentric parameters "+
				"on, the legacy switch and the 2x45° flag off.",
		),
	)
}

func (t *FixReducersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var n int
	err := t.sessions.With(func(s *session.Session) error {
		n = s.FixReducers()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if n == 0 {
		return mcp.NewToolResultText("No fittings need the reducer fix."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reducer fix staged for %d fitting(s).", n)), nil
}

// ToggleFittingParameterTool handles prefab_toggle_fitting_parameter:
// stages a 0/1 flip of a named integer parameter on all fittings.
type ToggleFittingParameterTool struct {
	sessions *session.Manager
}

func NewToggleFittingParameterTool(sessions *session.Manager) *ToggleFittingParameterTool {
	return &ToggleFittingParameterTool{sessions: sessions}
}

func (t *ToggleFittingParameterTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_toggle_fitting_parameter",
		mcp.WithDescription(
			"Stage a 0/1 toggle of a named integer parameter on every "+
				"fitting in the working set, e.g. \"2x45°\". The "+
				"eccentric reducer switch is never toggled off.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Parameter name to toggle."),
		),
	)
}

func (t *ToggleFittingParameterTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")

	var n int
	err := t.sessions.With(func(s *session.Session) error {
		var inner error
		n, inner = s.ToggleFittingParameter(name)
		return inner
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Toggle of %q staged for %d fitting(s).", name, n)), nil
}
