package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fixforward/fixforward/internal/adapters/outbound/state"
)

const stateURI = "fixforward://state"

// registerResources registers all fixforward MCP resources on the given server.
func registerResources(s *server.MCPServer, deps *serverDeps) {
	s.AddResource(
		mcplib.NewResource(
			stateURI,
			"Rollback State",
			mcplib.WithResourceDescription("The pending rollback state, or null when nothing is pending"),
			mcplib.WithMIMEType("application/json"),
		),
		handleStateResource(deps),
	)
}

func handleStateResource(deps *serverDeps) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		st, err := state.New(deps.home).Load()
		if err != nil {
			return nil, fmt.Errorf("loading rollback state: %w", err)
		}

		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling state: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      stateURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
