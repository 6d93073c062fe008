package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/session"
)

// AutoFillTool handles prefab_autofill: computes the code assignment for
// the whole working set from a seed.
type AutoFillTool struct {
	sessions *session.Manager
}

func NewAutoFillTool(sessions *session.Manager) *AutoFillTool {
	return &AutoFillTool{sessions: sessions}
}

func (t *AutoFillTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_autofill",
		mcp.WithDescription(
			"Parse a seed like \"prefab 5.5.5\" and fill every row's code: "+
				"fittings get the base code, pipes and tags get numbered "+
				"suffixes in spatial order. Manual edits survive unless "+
				"`overwrite` is set.",
		),
		mcp.WithString("seed",
			mcp.Required(),
			mcp.Description("Seed text, e.g. \"prefab 5.5.5\"."),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Also overwrite manually edited rows. Default false."),
		),
	)
}

func (t *AutoFillTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seed := req.GetString("seed", "")
	overwrite := boolArg(req, "overwrite", false)

	var result *mcp.CallToolResult
	err := t.sessions.With(func(s *session.Session) error {
		if err := s.AutoFill(seed, overwrite); err != nil {
			return err
		}
		var inner error
		result, inner = jsonResult(map[string]any{
			"seed": s.SeedText(),
			"rows": rowViews(s.Rows()),
		})
		return inner
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result, nil
}
