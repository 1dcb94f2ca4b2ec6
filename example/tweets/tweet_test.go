package tweets

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func Test_NewTweet_When_ContentHasHashtags_Then_TheyAreCollected(t *testing.T) {
	// act
	tweet, err := NewTweet(" anna ", "Shipping #GoLang today, #tablestore!", fixedNow)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "anna", tweet.Author)
	assert.Equal(t, []string{"golang", "tablestore"}, tweet.Hashtags)
	assert.Equal(t, fixedNow, tweet.CreatedAt)
	assert.NoError(t, tweet.Validate())
}

func Test_Tweet_Validate_When_FieldsAreInvalid_Then_ItFails(t *testing.T) {
	valid, err := NewTweet("anna", "hello", fixedNow)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		modify   func(t *Tweet)
		expected error
	}{
		{name: "missing id", modify: func(t *Tweet) { t.ID = "" }, expected: ErrTweetIDRequired},
		{name: "malformed id", modify: func(t *Tweet) { t.ID = "tweet-1" }, expected: ErrInvalidTweetID},
		{name: "empty author", modify: func(t *Tweet) { t.Author = "" }, expected: ErrEmptyAuthor},
		{name: "empty content", modify: func(t *Tweet) { t.Content = "" }, expected: ErrEmptyContent},
		{name: "content too long", modify: func(t *Tweet) { t.Content = strings.Repeat("x", 281) }, expected: ErrContentTooLong},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			tweet := valid
			tc.modify(&tweet)

			// act
			err := tweet.Validate()

			// assert
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func Test_Tweet_WithContent_When_ContentIsEdited_Then_HashtagsFollowAndIDIsKept(t *testing.T) {
	// arrange
	original, err := NewTweet("anna", "first #draft", fixedNow)
	require.NoError(t, err)

	// act
	edited, err := original.WithContent("final #release")

	// assert
	require.NoError(t, err)
	assert.Equal(t, original.ID, edited.ID)
	assert.Equal(t, []string{"release"}, edited.Hashtags)
	assert.Equal(t, []string{"draft"}, original.Hashtags)
}

func Test_AuthorTag_When_AuthorHasCaseAndSpaces_Then_TagIsNormalized(t *testing.T) {
	assert.Equal(t, "author:anna", AuthorTag("  Anna "))
}

func Test_TweetMapping_When_TweetIsMappedToRowAndBack_Then_ItIsUnchanged(t *testing.T) {
	// arrange
	tweet, err := NewTweet("bert", "Row mapping #tablestore", fixedNow)
	require.NoError(t, err)

	// act
	row, err := tweetToRow(tweet)
	require.NoError(t, err)
	mapped, err := tweetFromRow(row)

	// assert
	require.NoError(t, err)
	if diff := cmp.Diff(tweet, mapped); diff != "" {
		t.Errorf("tweet changed during mapping (-want +got):\n%s", diff)
	}
}

func Test_TweetMapping_When_TweetHasNoHashtags_Then_EmptyJSONArrayIsStored(t *testing.T) {
	// arrange
	tweet, err := NewTweet("bert", "no tags here", fixedNow)
	require.NoError(t, err)

	// act
	row, err := tweetToRow(tweet)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "[]", row[ColumnHashtags])
}

func Test_TweetMapping_When_TweetIsInvalid_Then_MappingToRowFails(t *testing.T) {
	// act
	_, err := tweetToRow(Tweet{ID: "nope"})

	// assert
	assert.ErrorIs(t, err, ErrInvalidTweetID)
}

func Test_TypeMapping_When_TweetIsWritten_Then_TimelineAndAuthorTagsAreAffected(t *testing.T) {
	// arrange
	tweet, err := NewTweet("clara", "tags", fixedNow)
	require.NoError(t, err)

	putResolver, ok := TypeMapping().PutResolver.(tablestore.DefaultPutResolver[Tweet])
	require.True(t, ok)
	deleteResolver, ok := TypeMapping().DeleteResolver.(tablestore.DefaultDeleteResolver[Tweet])
	require.True(t, ok)

	// act
	insertQuery, insertErr := putResolver.MapToInsertQuery(tweet)
	updateQuery, updateErr := putResolver.MapToUpdateQuery(tweet)
	deleteQuery, deleteErr := deleteResolver.MapToDeleteQuery(tweet)

	// assert
	require.NoError(t, insertErr)
	require.NoError(t, updateErr)
	require.NoError(t, deleteErr)

	expectedTags := []tablestore.TagString{"author:clara", TagTimeline}
	assert.Equal(t, expectedTags, insertQuery.AffectsTags())
	assert.Equal(t, expectedTags, updateQuery.AffectsTags())
	assert.Equal(t, expectedTags, deleteQuery.AffectsTags())
	assert.Equal(t, []any{tweet.ID}, updateQuery.WhereArgs())
	assert.Equal(t, []any{tweet.ID}, deleteQuery.WhereArgs())
}

func Test_SampleTweets_When_Generated_Then_TheyAreValidAndEndAtNow(t *testing.T) {
	// act
	tweets, err := SampleTweets(6, fixedNow)

	// assert
	require.NoError(t, err)
	require.Len(t, tweets, 6)
	assert.Equal(t, fixedNow, tweets[5].CreatedAt)
	assert.Equal(t, fixedNow.Add(-5*time.Second), tweets[0].CreatedAt)
	assert.Equal(t, "anna", tweets[0].Author)
	assert.Equal(t, "anna", tweets[4].Author)

	ids := make(map[string]struct{})
	for _, tweet := range tweets {
		require.NoError(t, tweet.Validate())
		ids[tweet.ID] = struct{}{}
	}
	assert.Len(t, ids, 6)
}

func Test_SampleTweets_When_CountIsZero_Then_NoTweetsAreGenerated(t *testing.T) {
	// act
	tweets, err := SampleTweets(0, fixedNow)

	// assert
	require.NoError(t, err)
	assert.Empty(t, tweets)
}
