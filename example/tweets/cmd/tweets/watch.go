package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/reactive-tablestore-go/example/tweets"
)

type watchOptions struct {
	*rootOptions
	Author     string
	Limit      uint
	MaxUpdates int
	PostEvery  time.Duration
}

func newWatchCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &watchOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the timeline and print it again whenever it changes",
		Long: `Print the timeline and print it again whenever tweets are put or deleted
through this process, until interrupted.

Change notifications do not cross process boundaries, so writes of other
processes are not picked up. Use --post-every to post sample tweets from
within the watching process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Author, "author", "a", "", "only tweets of this author")
	cmd.Flags().UintVarP(&opts.Limit, "limit", "l", 10, "maximum number of tweets per update (0 = all)")
	cmd.Flags().IntVar(&opts.MaxUpdates, "max-updates", 0, "stop after this many updates (0 = never)")
	cmd.Flags().DurationVar(&opts.PostEvery, "post-every", 0, "post a sample tweet at this interval (0 = never)")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *watchOptions) (err error) {
	if opts.PostEvery < 0 {
		return fmt.Errorf("--post-every must not be negative, got %s", opts.PostEvery)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := openApp(ctx, cmd, opts.rootOptions)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, app.Close()) }()

	var posting sync.WaitGroup
	defer posting.Wait()
	defer cancel()

	if opts.PostEvery > 0 {
		posting.Add(1)
		go func() {
			defer posting.Done()
			postSamples(ctx, app, opts.PostEvery)
		}()
	}

	updates := 0
	for timeline, watchErr := range app.Watch(ctx, opts.Author, opts.Limit) {
		if watchErr != nil {
			return watchErr
		}

		updates++

		if opts.Format == formatText {
			if err = writeTimelineHeader(cmd.OutOrStdout(), updates, time.Now()); err != nil {
				return err
			}
		}

		if err = writeTweets(cmd.OutOrStdout(), opts.Format, timeline); err != nil {
			return err
		}

		if opts.MaxUpdates > 0 && updates >= opts.MaxUpdates {
			break
		}
	}

	return nil
}

// postSamples posts one sample tweet per tick until ctx is done or a post fails.
func postSamples(ctx context.Context, app *tweets.App, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sample, err := tweets.SampleTweets(1, now)
			if err != nil {
				return
			}

			if _, err = app.Post(ctx, sample[0]); err != nil {
				return
			}
		}
	}
}
