package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"Auditorium/internal/app"
	"Auditorium/internal/logging"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			defer func() {
				if err := application.Close(); err != nil {
					logger.Error("close application", "error", err)
				}
			}()

			if err := application.Run(cmd.Context()); err != nil {
				logger.Error("application stopped", "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
