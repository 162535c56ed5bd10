package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ludo-technologies/simrec/internal/config"
)

// explicitFlags tracks the flags set on the command line, persistent ones
// included, so config.Merge only lets those override file values.
func explicitFlags(cmd *cobra.Command) *config.FlagTracker {
	ft := config.NewFlagTracker()
	if cmd == nil {
		return ft
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		ft.Set(f.Name)
	})
	return ft
}
