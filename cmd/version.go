package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is the current release, overridable at build time with -ldflags.
var version = "0.1.0"

func getCmdVersion(c *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kitsunedns v%s\n", version)
		},
	}
}
