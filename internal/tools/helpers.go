// Package tools implements the MCP tool surface of prefabgen: boundary
// selection, review-session editing, and commit.
//
// Each tool is a struct with its dependencies injected via constructor,
// a Definition() returning the mcp.Tool schema, and a Handle() method.
// Tools depend on the document and session interfaces, not on the
// SQLite store directly.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/geometry"
	"github.com/bvdk-tools/prefabgen/internal/session"
)

// int64Arg extracts an integer argument (JSON numbers are float64).
func int64Arg(req mcp.CallToolRequest, key string) (int64, bool) {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(v), true
}

// boolArg extracts a boolean argument.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// segmentsArg parses the "segments" argument: an array of [x1, y1, x2, y2]
// number quadruples, one per boundary line.
func segmentsArg(req mcp.CallToolRequest) ([]geometry.Segment, error) {
	raw, ok := req.GetArguments()["segments"].([]any)
	if !ok {
		return nil, fmt.Errorf("segments is required: an array of [x1, y1, x2, y2] quadruples")
	}

	segs := make([]geometry.Segment, 0, len(raw))
	for i, item := range raw {
		quad, ok := item.([]any)
		if !ok || len(quad) != 4 {
			return nil, fmt.Errorf("segment %d: expected [x1, y1, x2, y2]", i)
		}
		nums := make([]float64, 4)
		for j, n := range quad {
			f, ok := n.(float64)
			if !ok {
				return nil, fmt.Errorf("segment %d: coordinate %d is not a number", i, j)
			}
			nums[j] = f
		}
		segs = append(segs, geometry.Segment{
			Start: geometry.Point{X: nums[0], Y: nums[1]},
			End:   geometry.Point{X: nums[2], Y: nums[3]},
		})
	}
	return segs, nil
}

// stringsArg extracts an optional array-of-strings argument.
func stringsArg(req mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not a string", key, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// jsonResult renders a value as an indented JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// rowView is the wire shape of a working-set row.
type rowView struct {
	ElementID   int64   `json:"element_id"`
	Category    string  `json:"category"`
	Name        string  `json:"name,omitempty"`
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
	Diameter    float64 `json:"diameter,omitempty"`
	Length      float64 `json:"length,omitempty"`
	Warning     string  `json:"warning,omitempty"`
	DefaultCode string  `json:"default_code,omitempty"`
	Code        string  `json:"code,omitempty"`
	Dirty       bool    `json:"dirty,omitempty"`
	Pending     bool    `json:"pending,omitempty"`
}

func rowViews(rows []session.Row) []rowView {
	out := make([]rowView, len(rows))
	for i, r := range rows {
		v := rowView{
			ElementID:   r.ElementID,
			Category:    string(r.Category),
			Name:        r.Name,
			CenterX:     r.Center.X,
			CenterY:     r.Center.Y,
			Warning:     r.Warning,
			DefaultCode: r.DefaultCode,
			Code:        r.Code,
			Dirty:       r.Dirty,
			Pending:     r.Pending,
		}
		if r.Diameter != nil {
			v.Diameter = *r.Diameter
		}
		if r.Length != nil {
			v.Length = *r.Length
		}
		out[i] = v
	}
	return out
}
