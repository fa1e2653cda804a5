package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/roomservice/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the conversation graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the conversation nodes and the
actions between them.

With --session, the path taken by a persisted session is highlighted. This
reads the session from Redis, so redis.addr must be configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		reg, err := runValidate()
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if sessionID != "" {
			store, closeStore, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			state, err := store.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("load session %s: %w", sessionID, err)
			}
			overlay = &graph.GraphOverlay{
				VisitedNodes: append(state.History, state.NodeID),
				CurrentNode:  state.NodeID,
			}
		}

		// Generate and print Mermaid graph
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(reg.Initial(), reg.Nodes(), reg.Specs(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the path of this session")
}
