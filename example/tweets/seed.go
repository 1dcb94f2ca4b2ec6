package tweets

import (
	"fmt"
	"time"
)

var (
	sampleAuthors  = []string{"anna", "bert", "clara", "dave"}
	sampleMessages = []string{
		"Reactive reads are nice #tablestore",
		"Just moved our queries to live sequences #golang",
		"Transactions notify once, finally #sqlite",
		"Who else is watching their timeline re-render? #tablestore #golang",
		"Coffee first, then migrations",
	}
)

// SampleTweets creates n tweets of the sample authors, one second apart and ending at now.
func SampleTweets(n int, now time.Time) ([]Tweet, error) {
	tweets := make([]Tweet, 0, max(n, 0))

	for i := range n {
		author := sampleAuthors[i%len(sampleAuthors)]
		content := fmt.Sprintf("%s (%d)", sampleMessages[i%len(sampleMessages)], i+1)
		createdAt := now.Add(-time.Duration(n-1-i) * time.Second)

		tweet, err := NewTweet(author, content, createdAt)
		if err != nil {
			return nil, err
		}

		tweets = append(tweets, tweet)
	}

	return tweets, nil
}
