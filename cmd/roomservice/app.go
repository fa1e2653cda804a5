package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/internal/config"
	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/pkg/adapters/backend"
	"github.com/aretw0/roomservice/pkg/adapters/memory"
	natsadapter "github.com/aretw0/roomservice/pkg/adapters/nats"
	"github.com/aretw0/roomservice/pkg/adapters/process"
	"github.com/aretw0/roomservice/pkg/adapters/redis"
	"github.com/aretw0/roomservice/pkg/observability"
	"github.com/aretw0/roomservice/pkg/persistence/middleware"
	"github.com/aretw0/roomservice/pkg/ports"
)

// app is the assembled service plus everything that must be released on exit.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	svc     *roomservice.Service
	metrics http.Handler
	closers []func(context.Context) error
}

type appOptions struct {
	// demo forces the in-memory hotel even when a backend URL is configured.
	demo bool
	// metrics registers the Prometheus collectors and exposes a handler.
	metrics bool
	extra   []roomservice.Option
}

// loadConfig resolves the configuration and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return config.Config{}, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.LogFormat = format
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	var logger *slog.Logger
	if cfg.LogFormat == "json" {
		logger = logging.NewJSON(level)
	} else {
		logger = logging.New(level)
	}
	slog.SetDefault(logger)
	return logger, nil
}

// newApp wires the Service from the configuration. The caller must call close.
func newApp(ctx context.Context, cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx, opts); err != nil {
		_ = a.close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, opts appOptions) error {
	cfg := a.cfg
	svcOpts := []roomservice.Option{
		roomservice.WithLogger(a.logger),
		roomservice.WithResolverThreshold(cfg.Resolver.Threshold),
		roomservice.WithMaxOrderItems(cfg.Session.MaxOrderItems),
		roomservice.WithCatalogMaxAge(cfg.Catalog.MaxAge),
		roomservice.WithCatalogFetchTimeout(cfg.Catalog.FetchTimeout),
	}

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, shutdownTracer)

	if cfg.Redis.Addr != "" {
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithTTL(cfg.Redis.TTL),
			redis.WithPrefix(cfg.Redis.Prefix))
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		sessions, err := sealed(cfg, store)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts,
			roomservice.WithSessionStore(sessions),
			roomservice.WithLocker(redis.NewLocker(store.Client(), "roomservice:"), cfg.Session.LockTTL))
		a.logger.Info("Sessions persisted in Redis", "addr", cfg.Redis.Addr)
	}

	if cfg.NATS.URL != "" {
		pub, err := natsadapter.Connect(natsadapter.Config{
			URL:     cfg.NATS.URL,
			Token:   cfg.NATS.Token,
			Subject: cfg.NATS.Subject,
		}, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { pub.Close(); return nil })
		svcOpts = append(svcOpts, roomservice.WithPublisher(pub))
		a.logger.Info("Publishing placed orders", "subject", pub.Subject())
	}

	if cfg.Session.ProcessConfig != "" {
		specs, err := process.LoadSpecs(cfg.Session.ProcessConfig)
		if err != nil {
			return err
		}
		list := make([]process.Spec, 0, len(specs))
		for _, name := range slices.Sorted(maps.Keys(specs)) {
			list = append(list, specs[name])
		}
		svcOpts = append(svcOpts, roomservice.WithProcesses(list, cfg.Session.ProcessGrace))
	}

	if opts.metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		svcOpts = append(svcOpts, roomservice.WithMetrics(reg))
		a.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	catalogSvc, guests, orders, err := a.backends(opts.demo)
	if err != nil {
		return err
	}
	a.svc, err = roomservice.New(catalogSvc, guests, orders, append(svcOpts, opts.extra...)...)
	return err
}

// sealed wraps store with snapshot encryption when a key is configured.
func sealed(cfg config.Config, store ports.SessionStore) (ports.SessionStore, error) {
	active, fallback, err := cfg.Session.Keys()
	if err != nil || active == nil {
		return store, err
	}
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallback,
	})
	if err != nil {
		return nil, err
	}
	return middleware.Chain(store, mw), nil
}

func (a *app) backends(demo bool) (ports.CatalogService, ports.GuestService, ports.OrderService, error) {
	if demo || a.cfg.Backend.BaseURL == "" {
		a.logger.Warn("No hotel backend configured, using the demo hotel")
		b := memory.NewDemoBackend()
		return b, b, b, nil
	}
	c, err := backend.New(a.cfg.Backend.BaseURL,
		backend.WithTimeout(a.cfg.Backend.Timeout),
		backend.WithLogger(a.logger))
	if err != nil {
		return nil, nil, nil, err
	}
	return c, c, c, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
