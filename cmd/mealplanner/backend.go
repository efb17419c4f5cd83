// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/mealplanner/mealplanner/internal/auth"
	authmemory "github.com/mealplanner/mealplanner/internal/auth/memory"
	authpg "github.com/mealplanner/mealplanner/internal/auth/postgres"
	"github.com/mealplanner/mealplanner/internal/config"
	"github.com/mealplanner/mealplanner/internal/plan"
	planpg "github.com/mealplanner/mealplanner/internal/plan/postgres"
	"github.com/mealplanner/mealplanner/internal/store"
)

// Backend holds the stores selected by database.driver.
type Backend struct {
	Users  auth.UserRepository
	Tokens auth.TokenRepository
	Plans  plan.Store

	close func()
}

// Close releases the backend's connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// openBackend connects to the configured store.
func openBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		slog.WarnContext(ctx, "using in-memory store, data is lost on exit")
		return &Backend{
			Users:  authmemory.NewUserRepository(),
			Tokens: authmemory.NewTokenRepository(),
			Plans:  plan.NewMemoryStore(),
		}, nil
	case config.DriverPostgres:
		pool, err := store.Connect(ctx, cfg.Database.URL, store.PoolConfig{
			ConnectTimeout: cfg.Database.ConnectTimeout,
			MaxConns:       cfg.Database.MaxConns,
			ConnectRetries: cfg.Database.ConnectRetries,
		})
		if err != nil {
			return nil, err
		}
		return &Backend{
			Users:  authpg.NewUserRepository(pool),
			Tokens: authpg.NewTokenRepository(pool),
			Plans:  planpg.NewStore(pool),
			close:  pool.Close,
		}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("key", "database.driver").Errorf("unknown driver %q", cfg.Database.Driver)
	}
}

// newManager builds the auth manager over backend.
func newManager(cfg *config.Config, backend *Backend, logger *slog.Logger) (*auth.Manager, error) {
	hasher, err := auth.NewArgon2idHasher(cfg.Auth.Argon2.Params())
	if err != nil {
		return nil, err
	}
	return auth.NewManager(backend.Users, backend.Tokens, hasher,
		auth.WithLogger(logger),
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
	)
}

// withManager opens the backend, builds a manager and calls fn with it.
func withManager(ctx context.Context, cfg *config.Config, deps *Deps, logger *slog.Logger, fn func(*auth.Manager) error) error {
	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return oops.With("operation", "open backend").Wrap(err)
	}
	defer backend.Close()

	manager, err := newManager(cfg, backend, logger)
	if err != nil {
		return err
	}
	return fn(manager)
}
