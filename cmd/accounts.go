/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ezasdf/users-api/internal/services"
	"github.com/ezasdf/users-api/types"
)

var seedAccounts = []services.SignupInput{
	{Username: "test", Email: "test@email.com", Password: "greaterthaneight"},
	{Username: "test2", Email: "test2@email.com", Password: "greaterthaneight"},
}

var seedDBCmd = &cobra.Command{
	Use:   "seed-db",
	Short: "Insert sample accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAccounts(cmd, func(ctx context.Context, accounts *services.UserService, log *slog.Logger) error {
			for _, in := range seedAccounts {
				user, _, err := accounts.Signup(ctx, in)
				if err != nil {
					return fmt.Errorf("seed %s: %w", in.Username, err)
				}
				log.Info("seeded account", slog.Int("user_id", user.ID), slog.String("username", user.Username))
			}
			return nil
		})
	},
}

var addAdminInput services.SignupInput

var addAdminCmd = &cobra.Command{
	Use:   "add-admin",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAccounts(cmd, func(ctx context.Context, accounts *services.UserService, log *slog.Logger) error {
			user, err := accounts.AddAdmin(ctx, addAdminInput)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin (id %d)\n", user.Email, user.ID)
			return nil
		})
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Change account flags",
}

// flagCommand builds a subcommand that applies change to the account whose
// id is the only argument.
func flagCommand(use, short string, change func(ctx context.Context, accounts *services.UserService, id int) (types.User, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 {
				return fmt.Errorf("invalid account id %q", args[0])
			}
			return withAccounts(cmd, func(ctx context.Context, accounts *services.UserService, log *slog.Logger) error {
				user, err := change(ctx, accounts, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s active=%t admin=%t\n", user.ID, user.Email, user.Active, user.Admin)
				return nil
			})
		},
	}
}

func withAccounts(cmd *cobra.Command, fn func(ctx context.Context, accounts *services.UserService, log *slog.Logger) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	accounts, closeAll, err := openAccounts(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAll()
	return fn(ctx, accounts, log)
}

func init() {
	addAdminCmd.Flags().StringVar(&addAdminInput.Username, "username", "", "admin username")
	addAdminCmd.Flags().StringVar(&addAdminInput.Email, "email", "", "admin email")
	addAdminCmd.Flags().StringVar(&addAdminInput.Password, "password", "", "admin password")
	_ = addAdminCmd.MarkFlagRequired("username")
	_ = addAdminCmd.MarkFlagRequired("email")
	_ = addAdminCmd.MarkFlagRequired("password")

	accountsCmd.AddCommand(
		flagCommand("activate", "Reactivate an account", func(ctx context.Context, a *services.UserService, id int) (types.User, error) {
			return a.SetActive(ctx, id, true)
		}),
		flagCommand("deactivate", "Deactivate an account", func(ctx context.Context, a *services.UserService, id int) (types.User, error) {
			return a.SetActive(ctx, id, false)
		}),
		flagCommand("promote", "Grant admin rights", func(ctx context.Context, a *services.UserService, id int) (types.User, error) {
			return a.SetAdmin(ctx, id, true)
		}),
		flagCommand("demote", "Revoke admin rights", func(ctx context.Context, a *services.UserService, id int) (types.User, error) {
			return a.SetAdmin(ctx, id, false)
		}),
	)

	rootCmd.AddCommand(seedDBCmd, addAdminCmd, accountsCmd)
}
