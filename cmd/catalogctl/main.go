package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-catalog/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-catalog/internal/app"
	"github.com/odyssey-erp/odyssey-catalog/internal/catalog"
	"github.com/odyssey-erp/odyssey-catalog/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-catalog/internal/platform/db"
	"github.com/odyssey-erp/odyssey-catalog/jobs"
)

// exitError carries a command exit code through cobra.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operate the product catalog search engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(searchCmd(cfg, logger), categoriesCmd(cfg, logger), importCmd(cfg), jobsCmd(cfg))

	if err := root.ExecuteContext(ctx); err != nil {
		var code exitError
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func exitCode(code int) error {
	if code == 0 {
		return nil
	}
	return exitError(code)
}

func searchCmd(cfg *app.Config, logger *slog.Logger) *cobra.Command {
	var (
		snapshotPath string
		opts         cli.SearchOptions
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Filter a catalog snapshot and print matches with profit metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Interactive && (snapshotPath == "" || snapshotPath == "-") {
				return errors.New("search: --interactive needs --snapshot from a file")
			}
			snap, err := cli.LoadSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				opts.Debounce = cfg.CatalogDebounce
			}
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			opts.Input = cmd.InOrStdin()
			c := cli.NewCatalogCLI(snap, cfg.CatalogService(), logger)
			return exitCode(c.SearchCommand(cmd.Context(), opts))
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "-", "catalog snapshot JSON file, - for stdin")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "free text query")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "fields searched by the query")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category to keep, all for every category")
	cmd.Flags().StringToStringVar(&opts.Filters, "filter", nil, "exact match criteria as key=value")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "read queries from stdin, one per line")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 0, "quiet period before an interactive query runs")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "print JSON lines")
	return cmd
}

func categoriesCmd(cfg *app.Config, logger *slog.Logger) *cobra.Command {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List category facets of a catalog snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := cli.LoadSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			c := cli.NewCatalogCLI(snap, cfg.CatalogService(), logger)
			return exitCode(c.CategoriesCommand(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "-", "catalog snapshot JSON file, - for stdin")
	return cmd
}

func importCmd(cfg *app.Config) *cobra.Command {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a catalog snapshot into Postgres and invalidate sales indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := cli.LoadSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			pool, err := db.New(ctx, cfg.PGDSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			redisClient, err := cache.New(ctx, cfg.RedisAddr)
			if err != nil {
				return err
			}
			defer func() { _ = redisClient.Close() }()

			repo := catalog.NewPostgresRepository(pool)
			if err := repo.EnsureSchema(ctx); err != nil {
				return err
			}
			return exitCode(cli.ImportCommand(ctx, repo, catalog.NewVersionStore(redisClient), cli.ImportOptions{
				Snapshot: snap,
				Stdout:   cmd.OutOrStdout(),
				Stderr:   cmd.ErrOrStderr(),
			}))
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "-", "catalog snapshot JSON file, - for stdin")
	return cmd
}

func jobsCmd(cfg *app.Config) *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Inspect and trigger background jobs"}

	var trigger cli.TriggerOptions
	reindex := &cobra.Command{
		Use:   "reindex",
		Short: "Enqueue a catalog reindex",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI, err := newJobsCLI(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = jobsCLI.Close() }()
			info, err := jobsCLI.Trigger(cmd.Context(), jobs.TaskCatalogReindex, trigger)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s as %s\n", info.Type, info.ID)
			return nil
		},
	}
	reindex.Flags().BoolVar(&trigger.Bump, "bump", false, "advance the sales version before rebuilding")
	reindex.Flags().StringVar(&trigger.Reason, "reason", "", "note recorded with the job")

	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Print default queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI, err := newJobsCLI(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = jobsCLI.Close() }()
			stats, err := jobsCLI.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
		},
	}

	var size int
	scheduled := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI, err := newJobsCLI(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = jobsCLI.Close() }()
			tasks, err := jobsCLI.ListScheduled(cmd.Context(), size)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	scheduled.Flags().IntVar(&size, "size", 10, "page size")

	cmd.AddCommand(reindex, inspect, scheduled)
	return cmd
}

func newJobsCLI(cfg *app.Config) (*cli.JobsCLI, error) {
	opt, err := cfg.QueueRedis()
	if err != nil {
		return nil, err
	}
	return cli.NewJobsCLI(opt), nil
}
