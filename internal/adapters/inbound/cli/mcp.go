package cli

import (
	mcpadapter "github.com/fixforward/fixforward/internal/adapters/inbound/mcp"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the fixforward MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(root))
	return cmd
}

func newMCPServeCmd(root *rootOptions) *cobra.Command {
	var projectPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start fixforward MCP server (stdio)",
		Long: "Start the fixforward MCP server using stdio transport. This lets AI coding assistants " +
			"diagnose failing tests, classify runner output, interpret fix responses and inspect the rollback state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectPath == "" {
				projectPath = "."
			}
			p, err := loadProject(projectPath, root.log)
			if err != nil {
				return err
			}
			s := mcpadapter.NewFixForwardMCPServer(p.root, p.cfg, p.home, root.log)
			return server.ServeStdio(s)
		},
	}

	cmd.Flags().StringVar(&projectPath, "path", "", "Project path (defaults to current working directory)")

	return cmd
}
