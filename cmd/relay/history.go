package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/relay/internal/app"
	"github.com/MrSnakeDoc/relay/internal/cli"
	"github.com/MrSnakeDoc/relay/internal/history"
	"github.com/MrSnakeDoc/relay/internal/utils"
)

type historyFlags struct {
	json    bool
	noColor bool
}

func newHistoryCmd() *cobra.Command {
	var f historyFlags

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded relay attempts",
	}
	cmd.PersistentFlags().BoolVar(&f.json, "json", false, "print JSON instead of tables")
	cmd.PersistentFlags().BoolVar(&f.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newHistoryListCmd(&f),
		newHistoryShowCmd(&f),
		newHistoryDeleteCmd(&f),
	)
	return cmd
}

func newHistoryListCmd(f *historyFlags) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded attempts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd.Context(), func(svc *history.Service) error {
				size := limit
				if size == 0 {
					size = svc.DefaultPageSize()
				}
				p, err := svc.List(cmd.Context(), page, size)
				if err != nil {
					return err
				}
				if f.json {
					return printJSON(cmd.OutOrStdout(), p)
				}
				f.printer(cmd.OutOrStdout()).Page(p)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default from RELAY_DEFAULT_PAGE_SIZE)")
	return cmd
}

func newHistoryShowCmd(f *historyFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one recorded attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withHistory(cmd.Context(), func(svc *history.Service) error {
				d, err := svc.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if f.json {
					return printJSON(cmd.OutOrStdout(), d)
				}
				f.printer(cmd.OutOrStdout()).Detail(d)
				return nil
			})
		},
	}
}

func newHistoryDeleteCmd(f *historyFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one recorded attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withHistory(cmd.Context(), func(svc *history.Service) error {
				if err := svc.Delete(cmd.Context(), id); err != nil {
					return err
				}
				if f.json {
					return printJSON(cmd.OutOrStdout(), map[string]string{"message": "Request deleted successfully"})
				}
				f.printer(cmd.OutOrStdout()).Deleted(id)
				return nil
			})
		},
	}
}

// withHistory opens the configured store for the duration of fn.
func withHistory(ctx context.Context, fn func(*history.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := toolLogger(cfg)
	defer func() { _ = log.Sync() }()

	st, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer utils.MustClose(st, log, "history store")

	return fn(history.New(st, history.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}))
}

func (f *historyFlags) printer(w io.Writer) *cli.Printer {
	return cli.NewPrinter(w, !f.noColor && !color.NoColor)
}

func printJSON(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(cli.JSON(raw))
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid request id %q", s)
	}
	return id, nil
}
