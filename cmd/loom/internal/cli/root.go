// Package cli implements the loom command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0-dev"

// NewRootCommand creates the root command for the loom CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "loom",
		Short:   "Loom - a declarative UI engine for Go",
		Long:    "Loom renders declarative component trees onto pluggable host backends.\n\nUse \"loom <command> --help\" for more information about a command.",
		Version: Version,

		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // main prints errors once
	}

	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewDoctorCommand())

	return cmd
}
