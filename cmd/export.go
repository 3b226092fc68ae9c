/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ezasdf/users-api/internal/services"
	"github.com/ezasdf/users-api/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the account listing to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		bucket, err := storage.Open(cmd.Context(), cfg.Storage)
		if errors.Is(err, storage.ErrDisabled) {
			return errors.New("set STORAGE_BACKEND to minio or gcs to export")
		}
		if err != nil {
			return err
		}

		return withAccounts(cmd, func(ctx context.Context, accounts *services.UserService, log *slog.Logger) error {
			key, err := accounts.Export(ctx, bucket)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s/%s\n", bucket.Bucket(), key)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
