package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/collector"
	"github.com/bvdk-tools/prefabgen/internal/config"
	"github.com/bvdk-tools/prefabgen/internal/document"
	"github.com/bvdk-tools/prefabgen/internal/geometry"
	"github.com/bvdk-tools/prefabgen/internal/session"
)

// SelectBoundaryTool handles prefab_select_boundary: it chains the given
// line segments into a closed boundary, collects the contained elements,
// and opens the review session over them.
type SelectBoundaryTool struct {
	doc      document.Reader
	cfg      config.Config
	sessions *session.Manager
}

func NewSelectBoundaryTool(doc document.Reader, cfg config.Config, sessions *session.Manager) *SelectBoundaryTool {
	return &SelectBoundaryTool{doc: doc, cfg: cfg, sessions: sessions}
}

func (t *SelectBoundaryTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_select_boundary",
		mcp.WithDescription(
			"Select a prefab region by its boundary lines. `segments` is an "+
				"array of [x1, y1, x2, y2] quadruples in any order and "+
				"orientation; they must chain into one closed loop. Collects "+
				"the pipes, fittings, tags and text notes whose bounding-box "+
				"center lies inside, and opens the review session.",
		),
		mcp.WithArray("segments",
			mcp.Description("Boundary line segments as [x1, y1, x2, y2] quadruples."),
		),
		mcp.WithArray("categories",
			mcp.Description("Optional category filter: pipe, fitting, tag, textnote. Default: all."),
		),
	)
}

func (t *SelectBoundaryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	segs, err := segmentsArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	names, err := stringsArg(req, "categories")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var categories []document.Category
	for _, n := range names {
		c, err := document.ParseCategory(n)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		categories = append(categories, c)
	}

	poly, err := geometry.BuildPolygon(segs, geometry.DefaultTolerance)
	if err != nil {
		var be *geometry.BoundaryError
		if errors.As(err, &be) {
			return mcp.NewToolResultError(fmt.Sprintf(
				"The selected lines do not form a closed boundary: %s.", be.Reason)), nil
		}
		return nil, err
	}

	candidates, warnings, err := collector.Collect(t.doc, poly, categories)
	if err != nil {
		return nil, fmt.Errorf("collecting elements: %w", err)
	}

	s := session.New(candidates, t.cfg.SeedPrefixKeyword, t.cfg.Pairing())
	if err := t.sessions.Start(s); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	warnTexts := make([]string, 0, len(warnings))
	for _, w := range warnings {
		warnTexts = append(warnTexts, w.String())
	}
	return jsonResult(map[string]any{
		"session_id": s.ID,
		"rows":       rowViews(s.Rows()),
		"warnings":   warnTexts,
	})
}
