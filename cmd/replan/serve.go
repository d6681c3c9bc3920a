package main

import (
	"github.com/aretw0/replan/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the replan HTTP API: POST /runs streams a run as NDJSON,
GET /runs/{id}/events relays it as Server-Sent Events, GET /graph draws the
workflow and GET /metrics exposes Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		offline, _ := cmd.Flags().GetBool("offline")
		return cli.Serve(cmd.Context(), cli.ServeOptions{
			ConfigPath: configPath(cmd),
			Addr:       addr,
			Offline:    offline,
			Debug:      debug(cmd),
		}, stdStreams())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().Bool("offline", false, "Use the scripted demo oracles instead of a model")
}
