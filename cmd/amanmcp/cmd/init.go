package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/coderag/configs"
	"github.com/Aman-CERP/coderag/internal/config"
	"github.com/Aman-CERP/coderag/internal/output"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create project configuration file",
		Long: `Create the project configuration file (.coderag.yaml) in the current
directory, or the nearest parent directory containing a .git folder.

This file contains project-specific settings like:
  - store_url: where the hybrid index lives
  - default_project: the project identifier used when none is given
  - search: BM25/semantic fusion weights
  - server: transport and listen address

Project configuration is meant to be version-controlled, unlike the
machine-specific user config (see 'coderag config init').`,
		Example: `  # Create project config in the current directory
  coderag init

  # Overwrite an existing .coderag.yaml
  coderag init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing project configuration")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		root = cwd
	}

	configPath := filepath.Join(root, ".coderag.yaml")

	if _, err := os.Stat(configPath); err == nil && !force {
		out.Warning("Project configuration already exists")
		out.Statusf("📁", "Location: %s", configPath)
		out.Newline()
		out.Status("💡", "Use --force to overwrite")
		return nil
	}

	if err := os.WriteFile(configPath, []byte(configs.ProjectConfigTemplate), 0644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}

	out.Success("Created project configuration")
	out.Statusf("📁", "Location: %s", configPath)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Set default_project to this project's name")
	out.Status("", "  2. Adjust store_url if you want the index somewhere other than .coderag/store")
	out.Status("", "  3. Run 'coderag config show' to verify the merged configuration")

	return nil
}
