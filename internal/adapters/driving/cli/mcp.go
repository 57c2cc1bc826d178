package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ras-cli/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
multi-hop questions, search the knowledge source and read run history.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default)
  ras mcp serve --knowledge_source wiki

  # HTTP mode (for MCP Inspector, remote access)
  ras mcp serve --knowledge_source wiki --port 8080

Client configuration:
  {
    "mcpServers": {
      "ras": {
        "command": "/path/to/ras",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	addSettingsFlags(mcpServeCmd, knowledgeFlags|modelFlags)
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := openPipeline(ctx, settings)
	if err != nil {
		return err
	}
	defer p.Close()

	ports := &mcp.Ports{
		Questions: p.Questions,
		Search:    p.Search,
		History:   p.History,
	}
	cfg := mcp.Config{MaxAnswerLength: settings.MaxAnswerLength}
	if len(settings.Datasets) == 1 {
		cfg.Dataset = settings.Datasets[0]
	}

	server, err := mcp.NewServer(ports, cfg)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
