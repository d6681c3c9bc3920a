package main

import (
	"github.com/aretw0/replan/internal/cli"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts replan as an MCP Server so that other agents can hand it objectives.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")
		offline, _ := cmd.Flags().GetBool("offline")
		return cli.ServeMCP(cmd.Context(), cli.MCPOptions{
			ConfigPath: configPath(cmd),
			Transport:  transport,
			Addr:       addr,
			BaseURL:    baseURL,
			Offline:    offline,
			Debug:      debug(cmd),
		}, stdStreams())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", "", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL (only for SSE)")
	mcpCmd.Flags().Bool("offline", false, "Use the scripted demo oracles instead of a model")
}
