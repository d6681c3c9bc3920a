package main

import (
	"github.com/aretw0/replan/internal/cli"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage archived runs",
	Long:  `List, inspect, and remove run records kept by the configured store.`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List archived runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ListRuns(cmd.Context(), configPath(cmd), stdStreams())
	},
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Print an archived run record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.InspectRun(cmd.Context(), configPath(cmd), args[0], stdStreams())
	},
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove one or more archived runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RemoveRuns(cmd.Context(), configPath(cmd), args, stdStreams())
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd)
	runsCmd.AddCommand(runsInspectCmd)
	runsCmd.AddCommand(runsRmCmd)
}
