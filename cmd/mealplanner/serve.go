// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mealplanner/mealplanner/internal/config"
	"github.com/mealplanner/mealplanner/internal/observability"
	"github.com/mealplanner/mealplanner/internal/plan"
	"github.com/mealplanner/mealplanner/internal/session"
	"github.com/mealplanner/mealplanner/internal/web"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepInterval   = time.Minute
)

func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the JSON API server and, when metrics.addr is set, the
observability server with /metrics, /healthz/liveness and /healthz/readiness.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, deps)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, deps, logger)
		},
	}
}

// runServeWithDeps starts the servers and blocks until a shutdown signal,
// context cancellation or a server failure.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *Deps, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps = deps.withDefaults()

	logger.InfoContext(ctx, "starting meal planner",
		"http_addr", cfg.HTTP.Addr,
		"database_driver", cfg.Database.Driver,
	)

	if cfg.Database.Driver == config.DriverPostgres && cfg.Database.AutoMigrate {
		if err := runAutoMigration(cfg.Database.URL, deps.MigratorFactory); err != nil {
			return err
		}
	}

	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return oops.With("operation", "open backend").Wrap(err)
	}
	defer backend.Close()

	manager, err := newManager(cfg, backend, logger)
	if err != nil {
		return err
	}
	bridge, err := session.NewBridge(manager,
		session.WithBridgeLogger(logger),
		session.WithRecheckInterval(cfg.HTTP.SessionRecheckInterval),
	)
	if err != nil {
		return err
	}
	registry := session.NewRegistry(cfg.HTTP.SessionIdleTimeout, session.WithMaxLifetime(cfg.HTTP.SessionMaxLifetime))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, manager.Ping)
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return oops.With("operation", "start observability server").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		metrics = obsServer.Metrics()
		cmd.Println("Observability server started on", obsServer.Addr())
	}
	if metrics == nil {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	plans, err := newPlanService(cfg, deps, backend, metrics, logger)
	if err != nil {
		stopServer(obsServer, "observability")
		return err
	}

	limiter := web.NewRateLimiter(web.RateLimiterConfig{
		PerMinute:       cfg.RateLimit.AuthPerMinute,
		Burst:           cfg.RateLimit.AuthBurst,
		CleanupInterval: web.DefaultRateLimiterConfig().CleanupInterval,
	})
	defer limiter.Stop()

	routerDeps := web.Deps{
		Accounts: manager,
		Bridge:   bridge,
		Registry: registry,
		Limiter:  limiter,
		Metrics:  metrics,
		Logger:   logger,
		Cookie:   session.DefaultCookieOptions(cfg.HTTP.CookieSecure),
	}
	if plans != nil {
		routerDeps.Plans = plans
	}
	router, err := web.NewRouter(routerDeps)
	if err != nil {
		stopServer(obsServer, "observability")
		return err
	}

	webServer := deps.WebServerFactory(cfg.HTTP.Addr, router)
	webErrCh, err := webServer.Start()
	if err != nil {
		stopServer(obsServer, "observability")
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	sweepStop := make(chan struct{})
	defer close(sweepStop)
	go registry.RunSweeper(sweepInterval, sweepStop)

	sigCh, stopSignals := deps.SignalNotifier()
	defer stopSignals()

	cmd.Println("Meal planner started on", webServer.Addr())
	logger.InfoContext(ctx, "meal planner ready", "http_addr", webServer.Addr())

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	stopServer(webServer, "web")
	stopServer(obsServer, "observability")
	logger.Info("shutdown complete")
	return nil
}

// newPlanService returns nil when no API key is configured.
func newPlanService(cfg *config.Config, deps *Deps, backend *Backend, metrics *observability.Metrics, logger *slog.Logger) (*plan.Service, error) {
	if cfg.Plan.APIKey == "" {
		logger.Warn("no plan API key configured, plan generation disabled",
			"env", config.EnvAPIKey,
		)
		return nil, nil
	}
	generator, err := deps.GeneratorFactory(cfg.Plan)
	if err != nil {
		return nil, oops.With("operation", "create plan generator").Wrap(err)
	}
	return plan.NewService(generator, backend.Plans,
		plan.WithRecorder(metrics),
		plan.WithServiceLogger(logger),
	)
}

type stoppable interface {
	Stop(ctx context.Context) error
}

func stopServer(s stoppable, name string) {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a fatal error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
