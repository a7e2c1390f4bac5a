/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tko-aly/usersvc/config"
	"github.com/tko-aly/usersvc/internal/mq"
	"github.com/tko-aly/usersvc/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect user change events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print user events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer queue.Close()

		out := json.NewEncoder(cmd.OutOrStdout())
		events := mq.NewUserEvents(queue, cfg.MQ.EventChannel)
		err = events.Tail(ctx, func(_ context.Context, event types.UserEvent) error {
			return out.Encode(event)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tail %s: %w", events.Channel(), err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
