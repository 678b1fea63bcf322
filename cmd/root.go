// Package cmd contains the CLI entry points for gemini-mcp.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gemini-mcp",
	Short: "MCP server exposing Gemini-backed tools over stdio",
	Long: `gemini-mcp is a Model Context Protocol server that exposes Gemini-backed
tools (search, reason, code, fileops) over the stdio transport.

Running the binary with no arguments starts the server. It requires the
GEMINI_API_KEY environment variable.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
