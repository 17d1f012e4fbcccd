// Package commands implements the mnipipe command line interface.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mnipipe",
		Short: "mnipipe - surface and volume transformation chains over MNI tools",
		Long: `mnipipe wraps the MNI surface/volume command line tools behind typed
artifact handles. Chains of transformations run eagerly; intermediate files
live in a private scratch directory and are removed as soon as their last
consumer releases them.

External tools invoked: param2xfm, transform_objects, mincbbox, mincreshape,
surface_mask2, mincmorph. These must be installed and on PATH.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newTransformCommand())
	rootCmd.AddCommand(newBBoxCommand())
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newJournalCommand())

	return rootCmd
}
