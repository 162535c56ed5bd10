package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/internal/version"
	"github.com/ludo-technologies/simrec/service"
)

// VersionCommand prints build information
type VersionCommand struct {
	short bool
	json  bool
}

// CreateCobraCommand creates the cobra command for version display
func (v *VersionCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the simrec version, build commit and date, Go version and platform.

Snapshots carry their own format version, which is checked when they are
loaded, independently of the binary version.

Examples:
  simrec version
  simrec version --short
  simrec version --json`,
		Args: cobra.NoArgs,
		RunE: v.run,
	}

	cmd.Flags().BoolVarP(&v.short, "short", "s", false, "Show only version number")
	cmd.Flags().BoolVar(&v.json, "json", false, "Print build information as JSON")
	cmd.MarkFlagsMutuallyExclusive("short", "json")
	return cmd
}

func (v *VersionCommand) run(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	switch {
	case v.json:
		return service.WriteJSON(w, version.Get())
	case v.short:
		_, err := fmt.Fprintln(w, version.Short())
		return err
	default:
		_, err := fmt.Fprintln(w, version.Info())
		return err
	}
}

// NewVersionCmd creates and returns the version cobra command
func NewVersionCmd() *cobra.Command {
	return (&VersionCommand{}).CreateCobraCommand()
}
