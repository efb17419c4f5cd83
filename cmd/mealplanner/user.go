// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package main

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mealplanner/mealplanner/internal/auth"
)

func newUserCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var username, email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Create an active account. The password is prompted for without echo
when stdin is a terminal, otherwise it is read as the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, deps)
			if err != nil {
				return err
			}
			password, err := deps.PasswordReader(cmd, "Password: ")
			if err != nil {
				return err
			}
			return withManager(cmd.Context(), cfg, deps, logger, func(m *auth.Manager) error {
				user, err := m.Register(cmd.Context(), username, email, password)
				if err != nil {
					return err
				}
				cmd.Printf("Created user %s (%s)\n", user.Email, user.UserID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&username, "username", "", "display name")
	create.Flags().StringVar(&email, "email", "", "login email")
	_ = create.MarkFlagRequired("username") //nolint:errcheck // flag is defined above
	_ = create.MarkFlagRequired("email")    //nolint:errcheck // flag is defined above
	cmd.AddCommand(create)

	cmd.AddCommand(newSetActiveCmd(deps, "activate", "Allow an account to log in", true))
	cmd.AddCommand(newSetActiveCmd(deps, "deactivate", "Block an account from logging in", false))

	return cmd
}

func newSetActiveCmd(deps *Deps, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " EMAIL",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, deps)
			if err != nil {
				return err
			}
			return withManager(cmd.Context(), cfg, deps, logger, func(m *auth.Manager) error {
				if err := m.SetActive(cmd.Context(), args[0], active); err != nil {
					return err
				}
				cmd.Printf("User %s %sd\n", auth.NormalizeEmail(args[0]), use)
				return nil
			})
		},
	}
}

// readPassword reads a password without echo from a terminal, or the first
// line of the command's input otherwise.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		cmd.Print(prompt)
		b, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // fd fits in int
		cmd.Println()
		if err != nil {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		return string(b), nil
	}
	return readPasswordLine(in)
}

func readPasswordLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", oops.Code("PASSWORD_READ_FAILED").Errorf("no password on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
