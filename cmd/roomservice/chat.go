package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/internal/cli"
	"github.com/aretw0/roomservice/internal/presentation/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Take an order interactively in the terminal",
	Long: `Plays the voice driver in the terminal: each prompt is printed with the
actions available next, and you answer by typing an action (or its number)
followed by its parameters, e.g. "validate_room 101" or "add_to_order item_name=coffee quantity=2".

With --json, stdin takes one {"action":..,"params":{..}} object per line and
every turn is written to stdout as a JSON line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		demo, _ := cmd.Flags().GetBool("demo")
		jsonMode, _ := cmd.Flags().GetBool("json")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		a, err := newApp(sc, cmd, appOptions{demo: demo})
		if err != nil {
			return err
		}
		defer func() {
			_ = a.close(context.Background())
		}()

		opts := []cli.Option{cli.WithLogger(a.logger), cli.WithJSON(jsonMode)}
		if !jsonMode {
			render, err := renderer()
			if err != nil {
				a.logger.Warn("Markdown rendering disabled", "err", err)
			} else {
				opts = append(opts, cli.WithRenderer(render))
			}
			if tui.IsTerminal(os.Stdout) {
				tui.PrintBanner(cmd.OutOrStdout(), roomservice.Version)
			}
		}

		err = cli.NewChat(a.svc, cmd.InOrStdin(), cmd.OutOrStdout(), opts...).Run(sc)
		if errors.Is(err, context.Canceled) && sc.Signal() != nil {
			return nil
		}
		return err
	},
}

func renderer() (func(string) (string, error), error) {
	if tui.IsTerminal(os.Stdout) {
		return tui.NewRenderer(os.Stdout)
	}
	return tui.PlainRenderer()
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("demo", false, "Use the built-in demo hotel instead of the configured backend")
	chatCmd.Flags().Bool("json", false, "Read and write NDJSON instead of text")
}
