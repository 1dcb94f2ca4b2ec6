package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/reactive-tablestore-go/example/tweets"
	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore/oteladapters"
	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore/sqlengine"
)

const (
	envDatabase     = "TWEETS_DB"
	defaultDatabase = "tweets.db"
	formatText      = "text"
	formatJSON      = "json"
)

var validFormats = []string{formatText, formatJSON}

// rootOptions holds the flags shared by all commands.
type rootOptions struct {
	Database string
	Format   string
	Verbose  bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tweets",
		Short: "Sample app for the reactive table store",
		Long: `Post, list and watch tweets kept in a SQLite database.

The database is created on first use. "watch --post-every 2s" keeps
posting sample tweets and re-renders the live timeline after each one.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}

			return nil
		},
	}

	database := os.Getenv(envDatabase)
	if database == "" {
		database = defaultDatabase
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", database, "path to the SQLite database (env "+envDatabase+")")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", formatText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log operations and SQL to stderr")

	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newPutCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))

	return cmd
}

// openApp opens the database of the --db flag. With --verbose, the store and the SQL engine log to stderr.
func openApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*tweets.App, error) {
	var cfg tweets.Config

	if opts.Verbose {
		handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})
		logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)

		cfg.StoreOptions = []tablestore.Option{
			tablestore.WithContextualLogger(logger),
			tablestore.WithInterceptors(tablestore.LoggingInterceptor(slog.New(handler))),
		}
		cfg.EngineOptions = []sqlengine.Option{sqlengine.WithContextualLogger(logger)}
	}

	app, err := tweets.Open(ctx, opts.Database, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", opts.Database, err)
	}

	return app, nil
}
