package main

import (
	"errors"

	"github.com/spf13/cobra"
)

type listOptions struct {
	*rootOptions
	Author string
	Limit  uint
}

func newListCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &listOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tweets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Author, "author", "a", "", "only tweets of this author")
	cmd.Flags().UintVarP(&opts.Limit, "limit", "l", 0, "maximum number of tweets (0 = all)")

	return cmd
}

func runList(cmd *cobra.Command, opts *listOptions) (err error) {
	ctx := cmd.Context()

	app, err := openApp(ctx, cmd, opts.rootOptions)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, app.Close()) }()

	list, err := app.List(ctx, opts.Author, opts.Limit)
	if err != nil {
		return err
	}

	return writeTweets(cmd.OutOrStdout(), opts.Format, list)
}
