package main

import (
	"github.com/aretw0/replan/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the plan -> execute -> replan workflow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")
		jsonMode, _ := cmd.Flags().GetBool("json")
		return cli.Graph(cmd.Context(), cli.GraphOptions{
			ConfigPath: configPath(cmd),
			RunID:      runID,
			JSON:       jsonMode,
		}, stdStreams())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Highlight the nodes visited by this archived run")
	graphCmd.Flags().Bool("json", false, "Print the topology as JSON")
}
