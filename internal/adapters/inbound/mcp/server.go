package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/fixforward/fixforward/internal/domain"
)

// serverDeps is what every tool and resource handler needs to build its
// adapters.
type serverDeps struct {
	root string
	cfg  domain.ProjectConfig
	home string
	log  *zap.Logger
}

// NewFixForwardMCPServer creates an MCP server with all fixforward tools
// and resources registered. root is the project to work on and home the
// directory holding the rollback state.
func NewFixForwardMCPServer(root string, cfg domain.ProjectConfig, home string, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := server.NewMCPServer(
		"fixforward",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	deps := &serverDeps{root: root, cfg: cfg, home: home, log: log}
	registerTools(s, deps)
	registerResources(s, deps)

	return s
}
