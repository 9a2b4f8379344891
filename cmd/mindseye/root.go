package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root mindseye command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mindseye",
		Short:         "Mind's Eye event search engine",
		Long:          "Mind's Eye keeps a collection of personal activity events in memory and answers substring and structured searches over it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newQueryCmd(),
		newStatsCmd(),
		newVersionCmd(),
	)

	return root
}
