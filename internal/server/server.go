// Package server wires all MCP components and creates the server
// instance.
//
// This is the composition root: it opens the document store, builds the
// session manager and the orchestrator, and injects them into the tools
// that depend on abstractions. No business logic lives here.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bvdk-tools/prefabgen/internal/config"
	"github.com/bvdk-tools/prefabgen/internal/document"
	"github.com/bvdk-tools/prefabgen/internal/logger"
	"github.com/bvdk-tools/prefabgen/internal/orchestrator"
	"github.com/bvdk-tools/prefabgen/internal/prompts"
	"github.com/bvdk-tools/prefabgen/internal/resources"
	"github.com/bvdk-tools/prefabgen/internal/session"
	"github.com/bvdk-tools/prefabgen/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every prefab tool registered against
// the document at documentPath.
//
// The returned cleanup function closes the document store and must be
// called on shutdown (typically via defer). It is always non-nil.
func New(documentPath string, cfg config.Config) (*server.MCPServer, func(), error) {
	log := logger.For("server")

	store, err := document.Open(documentPath)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening document: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warnw("document store close", "error", err)
		}
	}

	sessions := session.NewManager()
	runner := orchestrator.New(store, cfg)

	s := server.NewMCPServer(
		"prefabgen",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	selectBoundary := tools.NewSelectBoundaryTool(store, cfg, sessions)
	s.AddTool(selectBoundary.Definition(), selectBoundary.Handle)

	sessionRows := tools.NewSessionRowsTool(sessions)
	s.AddTool(sessionRows.Definition(), sessionRows.Handle)

	autoFill := tools.NewAutoFillTool(sessions)
	s.AddTool(autoFill.Definition(), autoFill.Handle)

	codeEdit := tools.NewStageCodeEditTool(sessions)
	s.AddTool(codeEdit.Definition(), codeEdit.Handle)

	addTag := tools.NewAddTagTool(sessions)
	s.AddTool(addTag.Definition(), addTag.Handle)

	removeTag := tools.NewRemoveTagTool(sessions)
	s.AddTool(removeTag.Definition(), removeTag.Handle)

	textNote := tools.NewPlaceTextNoteTool(sessions)
	s.AddTool(textNote.Definition(), textNote.Handle)

	fixReducers := tools.NewFixReducersTool(sessions)
	s.AddTool(fixReducers.Definition(), fixReducers.Handle)

	toggleParam := tools.NewToggleFittingParameterTool(sessions)
	s.AddTool(toggleParam.Definition(), toggleParam.Handle)

	actions := tools.NewActionsTool(sessions)
	s.AddTool(actions.Definition(), actions.Handle)

	undo := tools.NewUndoTool(sessions)
	s.AddTool(undo.Definition(), undo.Handle)

	commit := tools.NewCommitTool(runner, sessions)
	s.AddTool(commit.Definition(), commit.Handle)

	cancel := tools.NewCancelTool(sessions)
	s.AddTool(cancel.Definition(), cancel.Handle)

	packagePrompt := prompts.NewPackagePrompt()
	s.AddPrompt(packagePrompt.Definition(), packagePrompt.Handle)

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	resourceHandler := resources.NewHandler(cfg, sessions)
	s.AddResource(resourceHandler.SessionResource(), resourceHandler.HandleSession)
	s.AddResource(resourceHandler.ConfigResource(), resourceHandler.HandleConfig)

	log.Infow("server assembled", "document", documentPath)
	return s, cleanup, nil
}

func serverInstructions() string {
	return `prefabgen generates prefab piping deliverables from a drawn boundary.

Workflow:
1. prefab_select_boundary with the boundary line segments opens a review
   session over the contained pipes, fittings and tags.
2. prefab_autofill with a seed like "prefab 5.5.5" numbers every row.
3. Optionally refine: prefab_stage_code_edit, prefab_add_tag,
   prefab_remove_tag, prefab_place_text_note, prefab_fix_reducers,
   prefab_toggle_fitting_parameter. prefab_actions and prefab_undo
   inspect and revert staged steps.
4. prefab_commit writes everything in one transaction and produces the
   cropped plan view, 3D view, sheet and filtered schedules.
   prefab_cancel discards the session instead.

The document's active view must be a plan view when committing.`
}
