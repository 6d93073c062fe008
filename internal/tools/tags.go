package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/session"
)

// AddTagTool handles prefab_add_tag: stages a tag for an untagged pipe.
type AddTagTool struct {
	sessions *session.Manager
}

func NewAddTagTool(sessions *session.Manager) *AddTagTool {
	return &AddTagTool{sessions: sessions}
}

func (t *AddTagTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_add_tag",
		mcp.WithDescription(
			"Stage a tag for an untagged pipe in the working set. The tag "+
				"row mirrors the pipe's code; the tag element itself is "+
				"created at commit.",
		),
		mcp.WithNumber("element_id",
			mcp.Required(),
			mcp.Description("The pipe to tag."),
		),
	)
}

func (t *AddTagTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := int64Arg(req, "element_id")
	if !ok {
		return mcp.NewToolResultError("element_id is required"), nil
	}

	var result *mcp.CallToolResult
	err := t.sessions.With(func(s *session.Session) error {
		row, err := s.AddTag(id)
		if err != nil {
			return err
		}
		var inner error
		result, inner = jsonResult(map[string]any{"staged_row": rowViews([]session.Row{row})[0]})
		return inner
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result, nil
}

// RemoveTagTool handles prefab_remove_tag: stages deletion of a tag.
type RemoveTagTool struct {
	sessions *session.Manager
}

func NewRemoveTagTool(sessions *session.Manager) *RemoveTagTool {
	return &RemoveTagTool{sessions: sessions}
}

func (t *RemoveTagTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_remove_tag",
		mcp.WithDescription(
			"Stage deletion of an existing tag in the working set. The "+
				"element is deleted from the document at commit.",
		),
		mcp.WithNumber("element_id",
			mcp.Required(),
			mcp.Description("The tag to remove."),
		),
	)
}

func (t *RemoveTagTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := int64Arg(req, "element_id")
	if !ok {
		return mcp.NewToolResultError("element_id is required"), nil
	}

	err := t.sessions.With(func(s *session.Session) error {
		return s.RemoveTag(id)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Tag %d staged for deletion.", id)), nil
}
