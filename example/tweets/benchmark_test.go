package tweets_test

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/reactive-tablestore-go/example/tweets"
	"github.com/AntonStoeckl/reactive-tablestore-go/testutil/config"
)

func openBenchmarkApp(b *testing.B, initialTweets int) *tweets.App {
	b.Helper()

	app, err := tweets.Open(context.Background(), config.SQLiteInMemoryDSN(), tweets.Config{})
	require.NoError(b, err)
	b.Cleanup(func() { _ = app.Close() })

	sample, err := tweets.SampleTweets(initialTweets, time.Now().Add(-time.Hour))
	require.NoError(b, err)

	_, err = app.PostAll(context.Background(), sample)
	require.NoError(b, err)

	return app
}

func Benchmark_Post_With_Many_Tweets_InTheStore(b *testing.B) {
	// setup
	ctx := context.Background()
	app := openBenchmarkApp(b, 1000)
	fakeClock := time.Now()

	// act
	b.Run("post 1 tweet", func(b *testing.B) {
		var postTime time.Duration

		for i := 0; i < b.N; i++ {
			b.StopTimer()
			fakeClock = fakeClock.Add(time.Second)
			tweet, err := tweets.NewTweet("bench", "benchmark tweet #bench", fakeClock)
			require.NoError(b, err)

			b.StartTimer()
			start := time.Now()
			result, err := app.Post(ctx, tweet)
			postTime += time.Since(start)
			b.StopTimer()

			assert.NoError(b, err)
			assert.True(b, result.WasInserted())
		}

		b.ReportMetric(float64(postTime.Microseconds())/float64(b.N), "µs/post-op")
	})
}

func Benchmark_PostAll_In_One_Transaction(b *testing.B) {
	// setup
	ctx := context.Background()
	app := openBenchmarkApp(b, 1000)

	// act
	b.Run("post 10 tweets", func(b *testing.B) {
		var postTime time.Duration

		for i := 0; i < b.N; i++ {
			b.StopTimer()
			batch, err := tweets.SampleTweets(10, time.Now())
			require.NoError(b, err)

			b.StartTimer()
			start := time.Now()
			results, err := app.PostAll(ctx, batch)
			postTime += time.Since(start)
			b.StopTimer()

			assert.NoError(b, err)
			assert.Equal(b, 10, results.NumberOfInserts())
		}

		b.ReportMetric(float64(postTime.Microseconds())/float64(b.N), "µs/batch-op")
	})
}

func Benchmark_Live_Timeline_ReExecution(b *testing.B) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app := openBenchmarkApp(b, 1000)

	next, stop := iter.Pull2(app.Watch(ctx, "", 20))
	defer stop()

	_, err, ok := next()
	require.True(b, ok)
	require.NoError(b, err)

	// act
	b.Run("post and receive the new timeline", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			tweet, tweetErr := tweets.NewTweet("live", "live tweet", time.Now())
			require.NoError(b, tweetErr)
			b.StartTimer()

			_, postErr := app.Post(ctx, tweet)
			timeline, liveErr, liveOK := next()

			b.StopTimer()
			assert.NoError(b, postErr)
			assert.NoError(b, liveErr)
			assert.True(b, liveOK)
			assert.Len(b, timeline, 20)
			b.StartTimer()
		}
	})
}
