package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/roomservice/internal/cli"
	"github.com/aretw0/roomservice/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the ordering engine as an MCP Server.
An LLM agent can then take the call: every action is a tool, plus
start_session, get_session and end_session.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")
		demo, _ := cmd.Flags().GetBool("demo")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		a, err := newApp(sc, cmd, appOptions{demo: demo})
		if err != nil {
			return err
		}
		defer func() {
			ended := a.svc.Shutdown(context.Background())
			if err := a.close(context.Background()); err != nil {
				a.logger.Warn("Shutdown incomplete", "err", err)
			}
			a.logger.Info("MCP server stopped", "sessions_ended", ended)
		}()

		srv := mcp.NewServer(a.svc, a.logger)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			a.logger.Info("Starting roomservice MCP server (stdio)", "tools", len(srv.Tools()))
			return srv.ServeStdio()
		case "sse":
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			err := srv.ServeSSE(sc, addr, baseURL)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public URL of the SSE endpoint (only for SSE)")
	mcpCmd.Flags().Bool("demo", false, "Use the built-in demo hotel instead of the configured backend")
}
