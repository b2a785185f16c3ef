package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clinicapi/internal/notify"
)

func notifierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifier",
		Short: "Consume notification events from RabbitMQ and send emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			mailer, err := newMailer(cfg, logger)
			if err != nil {
				return err
			}

			consumer := notify.NewConsumer(notify.ConsumerConfig{
				URL:      cfg.RabbitURL,
				Exchange: cfg.NotifyExchange,
				Queue:    cfg.NotifyQueue,
				Prefetch: cfg.NotifyWorkers,
			}, mailer, logger.With().Str("component", "notifier").Logger())
			if err := consumer.Connect(); err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info().Str("queue", cfg.NotifyQueue).Msg("notifier started")
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info().Msg("notifier stopped")
			return nil
		},
	}
}
