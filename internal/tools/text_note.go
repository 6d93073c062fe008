package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/session"
)

// PlaceTextNoteTool handles prefab_place_text_note: stages a label note
// at the region's minimum corner if the working set has none.
type PlaceTextNoteTool struct {
	sessions *session.Manager
}

func NewPlaceTextNoteTool(sessions *session.Manager) *PlaceTextNoteTool {
	return &PlaceTextNoteTool{sessions: sessions}
}

func (t *PlaceTextNoteTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_place_text_note",
		mcp.WithDescription(
			"Stage a text note labelling the region, placed at its minimum "+
				"corner. No-op if the working set already contains a text "+
				"note. Text defaults to the session's seed.",
		),
		mcp.WithString("text",
			mcp.Description("Note content. Defaults to the seed text accepted by autofill."),
		),
	)
}

func (t *PlaceTextNoteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")

	var placed bool
	err := t.sessions.With(func(s *session.Session) error {
		if text == "" {
			text = s.SeedText()
		}
		var inner error
		placed, inner = s.PlaceMissingTextNote(text)
		return inner
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !placed {
		return mcp.NewToolResultText("The working set already has a text note; nothing staged."), nil
	}
	return mcp.NewToolResultText("Text note staged at the region's minimum corner."), nil
}
