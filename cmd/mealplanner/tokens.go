// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/mealplanner/mealplanner/internal/auth"
)

func newTokensCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain remember-me tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired remember-me tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, deps)
			if err != nil {
				return err
			}
			return withManager(cmd.Context(), cfg, deps, logger, func(m *auth.Manager) error {
				n, err := m.PurgeExpiredTokens(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("Purged %d expired token(s)\n", n)
				return nil
			})
		},
	})
	return cmd
}
