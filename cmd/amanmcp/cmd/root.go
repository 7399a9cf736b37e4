// Package cmd provides the CLI commands for coderag.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/coderag/pkg/version"
)

// NewRootCmd creates the root command for the coderag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coderag",
		Short: "Retrieval-augmented code search MCP server",
		Long: `coderag is a hybrid (BM25 + semantic) code search engine exposed to
AI coding assistants as an MCP tool surface.

Running 'coderag' with no subcommand starts the MCP server over stdio,
which is how editors and agents normally launch it. Use 'coderag serve'
directly when you want to choose the transport explicitly.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServeDefault(cmd)
		},
	}

	cmd.SetVersionTemplate("coderag version {{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCompactCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// runServeDefault starts the MCP server with the effective configuration's
// transport when coderag is invoked with no subcommand.
func runServeDefault(cmd *cobra.Command) error {
	return runServe(cmd.Context(), cmd, "")
}
