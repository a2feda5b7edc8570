package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/store/postgres"
)

func newMigrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:       "migrate up|down|version|force N",
		Short:     "Manage the postgres history schema",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "version", "force"},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dsn == "" {
				dsn = cfg.DatabaseURL
			}
			if dsn == "" {
				return errors.New("no database URL: set RELAY_DATABASE_URL or --database-url")
			}

			// migrate reports progress through the logger, so keep info on.
			log := logger.New("info", cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			return postgres.RunMigrate(log, dsn, args[0], args[1:])
		},
	}

	cmd.Flags().StringVar(&dsn, "database-url", "", "postgres DSN (defaults to RELAY_DATABASE_URL)")
	return cmd
}
