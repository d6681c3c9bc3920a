package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/replan"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of replan",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "replan version %s\n", strings.TrimSpace(replan.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
