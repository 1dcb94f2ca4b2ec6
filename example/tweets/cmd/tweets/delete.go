package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

type deleteOptions struct {
	*rootOptions
	Author string
}

type deleteResult struct {
	Deleted int64 `json:"deleted"`
}

func newDeleteCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &deleteOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete [flags] [id]",
		Short: "Delete a tweet by id, or all tweets of an author",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.Author == "" && len(args) != 1 {
				return errors.New("requires the id of the tweet or --author")
			}

			if opts.Author != "" && len(args) != 0 {
				return errors.New("an id cannot be combined with --author")
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Author, "author", "a", "", "delete all tweets of this author")

	return cmd
}

func runDelete(cmd *cobra.Command, opts *deleteOptions, args []string) (err error) {
	ctx := cmd.Context()

	app, err := openApp(ctx, cmd, opts.rootOptions)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, app.Close()) }()

	var deleted int64
	if opts.Author != "" {
		if deleted, err = app.DeleteByAuthor(ctx, opts.Author); err != nil {
			return err
		}
	} else {
		if err = app.Delete(ctx, args[0]); err != nil {
			return err
		}

		deleted = 1
	}

	if opts.Format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), deleteResult{Deleted: deleted})
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d tweet(s).\n", deleted)

	return err
}
