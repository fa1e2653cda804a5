package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/roomservice/internal/flow"
	"github.com/aretw0/roomservice/internal/runtime"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and the conversation graph",
	Long: `Loads the configuration, then builds the conversation graph and checks that
every action has a handler, every successor exists and every node is
reachable from the greeting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd); err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
		reg, err := runValidate()
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Graph is valid: %d nodes, %d actions\n", len(reg.Nodes()), len(reg.Specs()))
		return nil
	},
}

// runValidate builds the registry (which checks handlers and successors)
// and walks it from the initial node to find unreachable nodes.
func runValidate() (*runtime.Registry, error) {
	reg, err := flow.New(nil, nil, nil).Registry()
	if err != nil {
		return nil, err
	}
	if missing := unreachable(reg); len(missing) > 0 {
		return nil, fmt.Errorf("unreachable nodes: %s", strings.Join(missing, ", "))
	}
	return reg, nil
}

func unreachable(reg *runtime.Registry) []string {
	seen := map[string]bool{reg.Initial(): true}
	queue := []string{reg.Initial()}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, spec := range reg.ActionsFor(id) {
			for _, next := range spec.Next {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	var missing []string
	for _, n := range reg.Nodes() {
		if !seen[n.ID] {
			missing = append(missing, n.ID)
		}
	}
	return missing
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
