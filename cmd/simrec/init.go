package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/config"
)

// InitCommand represents the init command
type InitCommand struct {
	force bool
	path  string
}

// NewInitCommand creates a new init command
func NewInitCommand() *InitCommand {
	return &InitCommand{
		force: false,
		path:  domain.DefaultConfigFileName,
	}
}

// CreateCobraCommand creates the cobra command for configuration initialization
func (i *InitCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize simrec configuration file",
		Long: `Initialize a simrec configuration file in the current directory.

Creates a .simrec.toml file with every setting and a comment explaining it.
simrec discovers the file by walking up from the working directory.

The generated configuration includes settings for:
• MinHash signature length and seed
• LSH band width
• Ranking and item recommendation defaults
• Ratings file layout and input patterns
• HTTP server and logging

Examples:
  # Create .simrec.toml in current directory (recommended)
  simrec init

  # Create config file at a custom path
  simrec init --path conf/simrec.toml

  # Overwrite existing configuration file
  simrec init --force`,
		Args: cobra.NoArgs,
		RunE: i.runInit,
	}

	// Add flags
	cmd.Flags().BoolVarP(&i.force, "force", "f", false, "Overwrite existing configuration file")
	cmd.Flags().StringVar(&i.path, "path", domain.DefaultConfigFileName, "Configuration file path")

	return cmd
}

// runInit executes the init command
func (i *InitCommand) runInit(cmd *cobra.Command, args []string) error {
	configPath, err := filepath.Abs(i.path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil && !i.force {
		return fmt.Errorf("configuration file already exists: %s\nUse --force to overwrite", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(configPath), err)
	}

	configData, err := config.GenerateDefaultConfigTOML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, []byte(configData), 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	relPath, err := filepath.Rel(".", configPath)
	if err != nil {
		relPath = configPath
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Configuration file created: %s\n", relPath)
	fmt.Fprintf(cmd.OutOrStdout(), "\nTo customize simrec for your data:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  1. Edit %s\n", relPath)
	fmt.Fprintf(cmd.OutOrStdout(), "  2. Set [input] paths and column names for your ratings files\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  3. Run 'simrec stats' to check the corpus it builds\n")

	return nil
}

// NewInitCmd creates and returns the init cobra command
func NewInitCmd() *cobra.Command {
	return NewInitCommand().CreateCobraCommand()
}
