package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/replan/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "replan",
	Short: "replan is a plan-and-execute agent",
	Long: `replan breaks an objective into steps, executes them one at a time with
tool-calling models, and replans after every step until it can answer.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file (default ./replan.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
}

func stdStreams() cli.Streams {
	return cli.Streams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func debug(cmd *cobra.Command) bool {
	d, _ := cmd.Flags().GetBool("debug")
	return d
}
