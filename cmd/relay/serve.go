package main

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/relay/internal/app"
	"github.com/MrSnakeDoc/relay/internal/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log := logger.New(cfg.LogLevel, cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("relay failed to start", logger.Error(err))
				return err
			}
			return a.Run()
		},
	}
}
