// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mealplanner/mealplanner/internal/config"
	"github.com/mealplanner/mealplanner/internal/observability"
	"github.com/mealplanner/mealplanner/internal/plan"
	"github.com/mealplanner/mealplanner/internal/store"
	"github.com/mealplanner/mealplanner/internal/web"
)

// Deps contains injectable dependencies for all commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(string) string

	// LogWriter receives log output.
	// Default: os.Stderr
	LogWriter io.Writer

	// BackendFactory opens the user, token and plan stores.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// GeneratorFactory creates the meal-plan generator.
	// Default: plan.NewChatClient
	GeneratorFactory func(cfg config.PlanConfig) (plan.Generator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// WebServerFactory creates the API server.
	// Default: web.NewServer
	WebServerFactory func(addr string, handler http.Handler) WebServer

	// PasswordReader prompts for a password without echo.
	// Default: readPassword
	PasswordReader func(cmd *cobra.Command, prompt string) (string, error)

	// SignalNotifier returns a channel of shutdown signals and a stop function.
	// Default: signal.Notify for SIGINT and SIGTERM
	SignalNotifier func() (<-chan os.Signal, func())
}

// withDefaults returns a copy of d with nil fields replaced by defaults.
func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	if out.LogWriter == nil {
		out.LogWriter = os.Stderr
	}
	if out.BackendFactory == nil {
		out.BackendFactory = openBackend
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.GeneratorFactory == nil {
		out.GeneratorFactory = func(cfg config.PlanConfig) (plan.Generator, error) {
			return plan.NewChatClient(cfg.ChatConfig(), nil)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if out.WebServerFactory == nil {
		out.WebServerFactory = func(addr string, handler http.Handler) WebServer {
			return web.NewServer(addr, handler)
		}
	}
	if out.PasswordReader == nil {
		out.PasswordReader = readPassword
	}
	if out.SignalNotifier == nil {
		out.SignalNotifier = func() (<-chan os.Signal, func()) {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			return ch, func() { signal.Stop(ch) }
		}
	}
	return &out
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// WebServer wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
