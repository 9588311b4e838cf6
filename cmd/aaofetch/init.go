package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/aaofetch/internal/config"
)

//go:embed templates/aaofetch.yaml
var configTemplate embed.FS

// configTemplatePath is the template location inside configTemplate.
const configTemplatePath = "templates/aaofetch.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new aaofetch configuration file",
		Long: `Initialize creates a new .aaofetch configuration file in the current directory.

The generated file documents every available setting with its default
value commented out.

Examples:
  # Create .aaofetch in current directory
  aaofetch init

  # Create config file at a specific path
  aaofetch init -o ~/.config/aaofetch/config.yaml

  # Force overwrite existing file
  aaofetch init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(configTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to change settings such as:")
	fmt.Fprintln(out, "  - The download directory and page limit")
	fmt.Fprintln(out, "  - Polite delays between requests")
	fmt.Fprintln(out, "  - An optional SOCKS5 proxy")

	return nil
}
