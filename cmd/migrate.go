/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ezasdf/users-api/internal/db"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		if err := db.MigrateUp(cfg.Database.DSN()); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		if err := db.MigrateDown(cfg.Database.DSN()); err != nil {
			return err
		}
		log.Info("migrations reverted")
		return nil
	},
}

// recreateDBCmd drops every table and rebuilds the schema.
var recreateDBCmd = &cobra.Command{
	Use:   "recreate-db",
	Short: "Drop and recreate the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		dsn := cfg.Database.DSN()
		if err := db.MigrateDown(dsn); err != nil {
			return err
		}
		if err := db.MigrateUp(dsn); err != nil {
			return err
		}
		log.Info("database recreated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, recreateDBCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
