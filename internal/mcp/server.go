package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/tools"
)

// ToolExecutor runs tool calls on behalf of a user.
type ToolExecutor interface {
	Call(ctx context.Context, userID, name string, args map[string]any) (*tools.Call, error)
}

// NewServer creates an MCP server exposing the task tools for userID.
// Tools listed in cfg.DisabledTools are not registered; unknown names
// in that list are logged and otherwise ignored.
func NewServer(exec ToolExecutor, cfg *config.Config, userID, version string, log zerolog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"taskflow",
		version,
		server.WithToolCapabilities(true),
	)

	if unknown := tools.Unknown(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn().Strs("tools", unknown).Msg("ignoring unknown disabled tools")
	}

	h := NewHandlers(exec, userID)
	for _, def := range tools.Filter(tools.Catalog(), cfg.DisabledTools) {
		s.AddTool(def, h.Handle(def.Name))
	}

	return s
}

// Run serves the task tools over stdio until stdin closes.
func Run(exec ToolExecutor, cfg *config.Config, userID, version string, log zerolog.Logger) error {
	s := NewServer(exec, cfg, userID, version, log)
	log.Info().Str("user_id", userID).Msg("mcp server listening on stdio")
	return server.ServeStdio(s)
}
