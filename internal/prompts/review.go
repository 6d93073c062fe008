package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the prefab-review MCP prompt: a quick summary of
// the active session before committing.
type ReviewPrompt struct{}

func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("prefab-review",
		mcp.WithPromptDescription(
			"Review the active prefab session: rows, staged actions, and "+
				"anything that still needs attention before commit.",
		),
	)
}

func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Review the active prefab session",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Show me where the prefab session stands.\n\n" +
						"Please:\n" +
						"1. Run `prefab_session_rows` and summarize the rows: counts per category, " +
						"rows without a code, and manually edited rows\n" +
						"2. Run `prefab_actions` and list what is staged\n" +
						"3. Point out untagged pipes and fittings with warnings\n" +
						"4. Tell me whether the session looks ready for `prefab_commit`",
				),
			},
		},
	}, nil
}
