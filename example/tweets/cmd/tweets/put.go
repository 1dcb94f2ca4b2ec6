package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/reactive-tablestore-go/example/tweets"
)

type putOptions struct {
	*rootOptions
	Author string
	ID     string
}

type putResult struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

func newPutCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &putOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put [flags] <content>",
		Short: "Post a new tweet or edit an existing one",
		Long: `Post a new tweet, or edit the content of an existing tweet with --id.

Examples:
  tweets put --author anna "Hello #tablestore"
  tweets put --id 0195e0a4-52b4-7a8c-9d1e-3f2a1b0c4d5e "Edited text"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(cmd, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&opts.Author, "author", "a", "", "author of a new tweet")
	cmd.Flags().StringVar(&opts.ID, "id", "", "id of the tweet to edit")
	cmd.MarkFlagsMutuallyExclusive("author", "id")
	cmd.MarkFlagsOneRequired("author", "id")

	return cmd
}

func runPut(cmd *cobra.Command, opts *putOptions, content string) (err error) {
	ctx := cmd.Context()

	app, err := openApp(ctx, cmd, opts.rootOptions)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, app.Close()) }()

	var tweet tweets.Tweet

	if opts.ID != "" {
		existing, getErr := app.Get(ctx, opts.ID)
		if getErr != nil {
			return getErr
		}

		if existing == nil {
			return fmt.Errorf("%w: %s", tweets.ErrTweetNotFound, opts.ID)
		}

		tweet, err = existing.WithContent(content)
	} else {
		tweet, err = tweets.NewTweet(opts.Author, content, time.Now())
	}

	if err != nil {
		return err
	}

	result, err := app.Post(ctx, tweet)
	if err != nil {
		return err
	}

	outcome := "unchanged"
	switch {
	case result.WasInserted():
		outcome = "posted"
	case result.WasUpdated():
		outcome = "edited"
	}

	if opts.Format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), putResult{ID: tweet.ID, Outcome: outcome})
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Tweet %s %s.\n", tweet.ID, outcome)

	return err
}
