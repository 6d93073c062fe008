package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/orchestrator"
	"github.com/bvdk-tools/prefabgen/internal/session"
)

// CommitTool handles prefab_commit: runs the generation pipeline over
// the active session and closes it on success.
type CommitTool struct {
	runner   *orchestrator.Runner
	sessions *session.Manager
}

func NewCommitTool(runner *orchestrator.Runner, sessions *session.Manager) *CommitTool {
	return &CommitTool{runner: runner, sessions: sessions}
}

func (t *CommitTool) Definition() mcp.Tool {
	return mcp.NewTool("prefab_commit",
		mcp.WithDescription(
			"Generate the prefab deliverable bundle from the active "+
				"session: write codes to the annotation field, produce the "+
				"cropped plan view, the 3D view, the numbered sheet and the "+
				"filtered schedules, all in one transaction. On failure "+
				"everything is rolled back and the session stays open.",
		),
	)
}

func (t *CommitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result *orchestrator.Result
	err := t.sessions.With(func(s *session.Session) error {
		var inner error
		result, inner = t.runner.Run(ctx, s)
		return inner
	})
	if err != nil {
		var tf *orchestrator.TransactionFailure
		if errors.As(err, &tf) {
			return mcp.NewToolResultError(fmt.Sprintf(
				"Generation failed during %s and was rolled back: %v. "+
					"The session is still open.", tf.State, tf.Err)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	t.sessions.End()
	return jsonResult(result)
}
