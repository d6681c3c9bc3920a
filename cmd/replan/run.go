package main

import (
	"strings"

	"github.com/aretw0/replan/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [objective]",
	Short: "Answer an objective",
	Long: `Plans, executes and replans until the objective is answered, printing every
step. With --offline a scripted demo answers without any model or API key.`,
	Example: `  replan run "Who won the 2022 NBA Finals MVP and where is he from?"
  replan run --offline --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		offline, _ := cmd.Flags().GetBool("offline")
		confirm, _ := cmd.Flags().GetBool("confirm-tools")
		allow, _ := cmd.Flags().GetStringSlice("allow-tools")
		quiet, _ := cmd.Flags().GetBool("quiet")
		runID, _ := cmd.Flags().GetString("run-id")
		limit, _ := cmd.Flags().GetInt("recursion-limit")

		return cli.Run(cmd.Context(), cli.RunOptions{
			Objective:      strings.Join(args, " "),
			ConfigPath:     configPath(cmd),
			JSON:           jsonMode,
			Offline:        offline,
			ConfirmTools:   confirm,
			AllowTools:     allow,
			Debug:          debug(cmd),
			Quiet:          quiet,
			RunID:          runID,
			RecursionLimit: limit,
		}, stdStreams())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Write the run as NDJSON events")
	runCmd.Flags().Bool("offline", false, "Use the scripted demo oracles instead of a model")
	runCmd.Flags().Bool("confirm-tools", false, "Ask before every tool call")
	runCmd.Flags().StringSlice("allow-tools", nil, "Only allow these tools (comma separated)")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner or system messages")
	runCmd.Flags().String("run-id", "", "Run ID (generated when empty)")
	runCmd.Flags().Int("recursion-limit", 0, "Maximum super-steps (overrides config)")
}
