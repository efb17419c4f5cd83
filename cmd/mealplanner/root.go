// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mealplanner/mealplanner/internal/config"
	"github.com/mealplanner/mealplanner/internal/logging"
)

const serviceName = "mealplanner"

// NewRootCmd creates the root command for the meal planner CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "mealplanner",
		Short: "Meal planner - accounts, remember-me sessions and generated meal plans",
		Long: `Meal planner serves a JSON API for registering accounts, logging in with
optional remember-me tokens and generating meal plans from ingredients.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String(config.ConfigFlag, "", "config file path (default: XDG_CONFIG_HOME/mealplanner/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newUserCmd(deps))
	cmd.AddCommand(newTokensCmd(deps))
	cmd.AddCommand(newConfigCmd(deps))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig reads and validates the configuration and installs the default logger.
func loadConfig(cmd *cobra.Command, deps *Deps) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags(), deps.Getenv)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, oops.With("operation", "validate configuration").Wrap(err)
	}

	logger := logging.Setup(serviceName, version, cfg.Log.Format, cfg.Log.Level, deps.LogWriter)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
