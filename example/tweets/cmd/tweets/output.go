package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/reactive-tablestore-go/example/tweets"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const timeLayout = "2006-01-02 15:04:05"

func writeTweets(w io.Writer, format string, list []tweets.Tweet) error {
	if format == formatJSON {
		if list == nil {
			list = []tweets.Tweet{}
		}

		return writeJSON(w, list)
	}

	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No tweets.")
		return err
	}

	for _, tweet := range list {
		if _, err := fmt.Fprintln(w, formatTweet(tweet)); err != nil {
			return err
		}
	}

	return nil
}

func formatTweet(tweet tweets.Tweet) string {
	line := fmt.Sprintf("%s  @%-8s %s", tweet.CreatedAt.UTC().Format(timeLayout), tweet.Author, tweet.Content)
	if len(tweet.Hashtags) > 0 {
		line += "  [" + strings.Join(tweet.Hashtags, " ") + "]"
	}

	return line + "  (" + tweet.ID + ")"
}

func writeJSON(w io.Writer, v any) error {
	encoded, err := jsonAPI.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(encoded))

	return err
}

// writeTimelineHeader separates the emissions of a live timeline in text output.
func writeTimelineHeader(w io.Writer, update int, at time.Time) error {
	_, err := fmt.Fprintf(w, "--- timeline #%d at %s ---\n", update, at.UTC().Format(timeLayout))
	return err
}
