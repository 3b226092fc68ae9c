/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ezasdf/users-api/config"
	"github.com/ezasdf/users-api/internal/db"
	"github.com/ezasdf/users-api/internal/logger"
	"github.com/ezasdf/users-api/internal/mq"
	"github.com/ezasdf/users-api/internal/server"
	"github.com/ezasdf/users-api/internal/services"
	"github.com/ezasdf/users-api/internal/store"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "usersapi",
	Short: "Users REST service and account administration",
	Long: `usersapi serves the users REST API and manages its database.

Configuration is read from the environment; APP_ENV selects the
development, testing or production profile.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and installs the process logger.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)
	return cfg, log, nil
}

// openAccounts connects to the database and, when configured, the message
// queue, and returns the account service over them. release closes both.
func openAccounts(ctx context.Context, cfg config.Config, log *slog.Logger) (accounts *services.UserService, release func(), err error) {
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil && !errors.Is(err, mq.ErrDisabled) {
		_ = conn.Close()
		return nil, nil, err
	}

	accounts, _, err = server.NewAccounts(cfg, store.New(conn), queue, nil, log)
	release = func() {
		if queue != nil {
			_ = queue.Close()
		}
		_ = conn.Close()
	}
	if err != nil {
		release()
		return nil, nil, err
	}
	return accounts, release, nil
}
