// Package prompts implements MCP prompt handlers for the prefab
// workflow.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// PackagePrompt handles the prefab-package MCP prompt. It walks the AI
// through the full boundary-to-bundle workflow.
type PackagePrompt struct{}

func NewPackagePrompt() *PackagePrompt {
	return &PackagePrompt{}
}

func (p *PackagePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("prefab-package",
		mcp.WithPromptDescription(
			"Generate a prefab piping package from a drawn boundary: "+
				"collect the contained elements, number them from a seed, "+
				"review, and commit the deliverable bundle.",
		),
		mcp.WithArgument("seed",
			mcp.ArgumentDescription("Seed code for the package, e.g. \"prefab 5.5.5\""),
		),
	)
}

func (p *PackagePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	seed := "prefab 5.5.5"
	if args := req.Params.Arguments; args != nil {
		if s, ok := args["seed"]; ok && s != "" {
			seed = s
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Generate prefab package %q", seed),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to generate a prefab piping package with seed '%s'.\n\n"+
						"Please:\n"+
						"1. Ask me for the boundary line segments and run `prefab_select_boundary` with them\n"+
						"2. Run `prefab_autofill` with seed='%s' and show me the resulting rows\n"+
						"3. Ask whether I want edits (code overrides, tags, the text note, reducer fixes) and stage them\n"+
						"4. When I confirm, run `prefab_commit` and report the generated views, sheet and schedules\n\n"+
						"If commit fails, tell me which stage failed; nothing will have been written.",
					seed, seed,
				)),
			},
		},
	}, nil
}
