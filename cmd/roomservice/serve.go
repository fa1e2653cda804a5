package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/internal/cli"
	httpadapter "github.com/aretw0/roomservice/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the ordering engine as a JSON API over HTTP.

Voice drivers open a session with POST /sessions, run actions with
POST /sessions/{id}/actions/{action} and may follow the conversation on
GET /sessions/{id}/events. Prometheus metrics are served on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		demo, _ := cmd.Flags().GetBool("demo")
		streams := httpadapter.NewStreamManager(nil)
		a, err := newApp(sc, cmd, appOptions{
			demo:    demo,
			metrics: true,
			extra:   []roomservice.Option{roomservice.WithLifecycleHooks(streams.Hooks())},
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := a.close(context.Background()); err != nil {
				a.logger.Warn("Shutdown incomplete", "err", err)
			}
		}()

		addr := a.cfg.HTTP.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		handler := httpadapter.NewHandler(a.svc,
			httpadapter.WithLogger(a.logger),
			httpadapter.WithStreams(streams),
			httpadapter.WithCORSOrigins(a.cfg.HTTP.CORSOrigins...),
			httpadapter.WithRateLimit(a.cfg.HTTP.RateLimit, a.cfg.HTTP.RateWindow),
			httpadapter.WithMetricsHandler(a.metrics))

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go reapIdle(sc, a)

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			a.logger.Info("Roomservice API listening", "address", addr, "version", roomservice.Version)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-sc.Done():
			a.logger.Info("Start shutdown", "signal", sc.Signal())
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Sessions go first so requests waiting on a submission return
		// instead of holding up the listener shutdown.
		ended := a.svc.Shutdown(ctx)

		// Asking listener to shut down and shed load.
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				a.logger.Error("Error killing server", "err", err)
			}
		}
		// Sessions opened while the listener drained.
		ended += a.svc.Shutdown(ctx)
		a.logger.Info("Roomservice API stopped gracefully", "sessions_ended", ended)
		return nil
	},
}

// reapIdle hangs up sessions the voice driver abandoned.
func reapIdle(ctx context.Context, a *app) {
	interval := a.cfg.Session.ReapInterval
	if interval <= 0 || a.cfg.Session.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ids := a.svc.ReapIdle(ctx, a.cfg.Session.IdleTimeout); len(ids) > 0 {
				a.logger.Info("Reaped idle sessions", "count", len(ids))
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on (overrides http.addr)")
	serveCmd.Flags().Bool("demo", false, "Use the built-in demo hotel instead of the configured backend")
}
