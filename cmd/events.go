/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ezasdf/users-api/internal/mq"
	"github.com/ezasdf/users-api/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the account event channel",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log account events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if errors.Is(err, mq.ErrDisabled) {
			return errors.New("set MQ_BACKEND to rabbitmq or pubsub to tail events")
		}
		if err != nil {
			return err
		}
		defer queue.Close()

		log.Info("tailing account events", slog.String("channel", cfg.MQ.Channel))
		events := mq.NewEvents(queue, cfg.MQ.Channel, log)
		err = events.Tail(ctx, func(ctx context.Context, event types.AccountEvent) error {
			log.InfoContext(ctx, "account event",
				slog.String("type", string(event.Type)),
				slog.Int("user_id", event.UserID),
				slog.String("email", event.Email),
				slog.Bool("active", event.Active),
				slog.Bool("admin", event.Admin),
				slog.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	eventsCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(eventsCmd)
}
