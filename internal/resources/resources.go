// Package resources implements MCP resource handlers for prefabgen.
//
// Resources provide read-only data the host can consume for context.
// They use URI-based addressing (prefab://...) following MCP
// conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bvdk-tools/prefabgen/internal/config"
	"github.com/bvdk-tools/prefabgen/internal/session"
)

// Handler manages prefab resource endpoints.
type Handler struct {
	cfg      config.Config
	sessions *session.Manager
}

func NewHandler(cfg config.Config, sessions *session.Manager) *Handler {
	return &Handler{cfg: cfg, sessions: sessions}
}

// SessionResource returns the MCP resource definition for the active
// session's state.
func (h *Handler) SessionResource() mcp.Resource {
	return mcp.NewResource(
		"prefab://session/status",
		"Prefab Session Status",
		mcp.WithResourceDescription("Active review session: seed, rows, and staged actions"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSession returns the active session state as JSON.
func (h *Handler) HandleSession(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type actionView struct {
		Name   string `json:"name"`
		Detail string `json:"detail"`
	}
	type rowView struct {
		ElementID int64  `json:"element_id"`
		Category  string `json:"category"`
		Code      string `json:"code,omitempty"`
		Dirty     bool   `json:"dirty,omitempty"`
		Pending   bool   `json:"pending,omitempty"`
	}
	var status struct {
		SessionID string       `json:"session_id"`
		Seed      string       `json:"seed,omitempty"`
		Rows      []rowView    `json:"rows"`
		Actions   []actionView `json:"actions"`
	}

	err := h.sessions.With(func(s *session.Session) error {
		status.SessionID = s.ID
		status.Seed = s.SeedText()
		for _, r := range s.Rows() {
			status.Rows = append(status.Rows, rowView{
				ElementID: r.ElementID,
				Category:  string(r.Category),
				Code:      r.Code,
				Dirty:     r.Dirty,
				Pending:   r.Pending,
			})
		}
		for _, a := range s.Actions() {
			status.Actions = append(status.Actions, actionView{Name: a.Name, Detail: a.Detail})
		}
		return nil
	})
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling session status: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ConfigResource returns the MCP resource definition for the effective
// configuration.
func (h *Handler) ConfigResource() mcp.Resource {
	return mcp.NewResource(
		"prefab://config",
		"Prefab Configuration",
		mcp.WithResourceDescription("Effective generation settings: schedules, annotation field, sheet layout"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleConfig returns the effective configuration as JSON.
func (h *Handler) HandleConfig(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(h.cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
