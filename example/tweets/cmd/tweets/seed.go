package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/reactive-tablestore-go/example/tweets"
)

type seedOptions struct {
	*rootOptions
	Count int
}

type seedResult struct {
	Inserted int `json:"inserted"`
	Total    int `json:"total"`
}

func newSeedCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &seedOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample tweets in one transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 20, "number of sample tweets")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *seedOptions) (err error) {
	if opts.Count <= 0 {
		return fmt.Errorf("--count must be positive, got %d", opts.Count)
	}

	ctx := cmd.Context()

	app, err := openApp(ctx, cmd, opts.rootOptions)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, app.Close()) }()

	sample, err := tweets.SampleTweets(opts.Count, time.Now())
	if err != nil {
		return err
	}

	results, err := app.PostAll(ctx, sample)
	if err != nil {
		return err
	}

	total, err := app.Count(ctx, "")
	if err != nil {
		return err
	}

	result := seedResult{Inserted: results.NumberOfInserts(), Total: total}
	if opts.Format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d tweets, %d in total.\n", result.Inserted, result.Total)

	return err
}
