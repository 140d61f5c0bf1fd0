package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cuescout/internal/daemon"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cuescout daemon with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := newLogger(cfg, true)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			rt, err := buildRuntime(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			d, err := daemon.New(cfg, rt.store, rt.runner, rt.feedback, rt.journal, rt.statuses, logger)
			if err != nil {
				return err
			}
			if err := d.Start(signalCtx); err != nil {
				return err
			}
			defer d.Stop()

			<-signalCtx.Done()
			return nil
		},
	}
}
