package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/relay/internal/config"
	"github.com/MrSnakeDoc/relay/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ relay: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relay",
		Short:         "HTTP request relay with a persisted history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig turns the loader's fatal panic into an error for the command.
func loadConfig() (cfg *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return config.Load(), nil
}

// toolLogger keeps one-shot commands quiet unless debug logging is asked for.
func toolLogger(cfg *config.Config) logger.Logger {
	level := "warn"
	if cfg.LogLevel == "debug" {
		level = "debug"
	}
	return logger.New(level, cfg.PrettyLog)
}
