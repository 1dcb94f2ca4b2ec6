package tweets

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
)

const (
	Table = "tweets"

	ColumnID        = "id"
	ColumnAuthor    = "author"
	ColumnContent   = "content"
	ColumnHashtags  = "hashtags"
	ColumnCreatedAt = "created_at"

	// TagTimeline is affected by every write to the tweets table.
	TagTimeline = "timeline"

	authorTagPrefix = "author:"
	maxContentRunes = 280
)

const createTableStatement = `CREATE TABLE IF NOT EXISTS tweets (
	id         TEXT PRIMARY KEY,
	author     TEXT NOT NULL,
	content    TEXT NOT NULL,
	hashtags   TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL
)`

var (
	ErrEmptyAuthor     = errors.New("tweet author must not be empty")
	ErrEmptyContent    = errors.New("tweet content must not be empty")
	ErrContentTooLong  = errors.New("tweet content is too long")
	ErrInvalidTweetID  = errors.New("tweet id is not a valid uuid")
	ErrTweetIDRequired = errors.New("tweet id is required")
)

// Tweet is the domain type stored in the tweets table.
type Tweet struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Hashtags  []string  `json:"hashtags"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTweet creates a Tweet with a time-ordered id. Hashtags are collected from the content.
func NewTweet(author, content string, now time.Time) (Tweet, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Tweet{}, err
	}

	t := Tweet{
		ID:        id.String(),
		Author:    strings.TrimSpace(author),
		Content:   strings.TrimSpace(content),
		CreatedAt: now.UTC(),
	}
	t.Hashtags = hashtagsOf(t.Content)

	return t, t.Validate()
}

// Validate checks the Tweet before it is written.
func (t Tweet) Validate() error {
	if t.ID == "" {
		return ErrTweetIDRequired
	}

	if _, err := uuid.Parse(t.ID); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTweetID, t.ID)
	}

	if t.Author == "" {
		return ErrEmptyAuthor
	}

	if t.Content == "" {
		return ErrEmptyContent
	}

	if len([]rune(t.Content)) > maxContentRunes {
		return fmt.Errorf("%w: %d runes, max %d", ErrContentTooLong, len([]rune(t.Content)), maxContentRunes)
	}

	return nil
}

// WithContent returns a copy of the Tweet with new content and the hashtags collected from it.
func (t Tweet) WithContent(content string) (Tweet, error) {
	t.Content = strings.TrimSpace(content)
	t.Hashtags = hashtagsOf(t.Content)

	return t, t.Validate()
}

// AuthorTag is the tag affected by writes of the author's tweets.
func AuthorTag(author string) tablestore.TagString {
	return authorTagPrefix + strings.ToLower(strings.TrimSpace(author))
}

func hashtagsOf(content string) []string {
	var hashtags []string
	for _, word := range strings.Fields(content) {
		if len(word) > 1 && strings.HasPrefix(word, "#") {
			hashtags = append(hashtags, strings.ToLower(strings.TrimRight(word[1:], ".,!?;:")))
		}
	}

	return hashtags
}

/***** mapping *****/

// TypeMapping maps Tweet to the tweets table. Puts and deletes affect the table, TagTimeline and
// the author's tag.
func TypeMapping() tablestore.TypeMapping[Tweet] {
	return tablestore.TypeMapping[Tweet]{
		GetResolver: tablestore.DefaultGetResolver[Tweet]{MapFromRow: tweetFromRow},
		PutResolver: tablestore.DefaultPutResolver[Tweet]{
			MapToInsertQuery: func(t Tweet) (tablestore.InsertQuery, error) {
				return tablestore.BuildInsertQuery(Table).
					AffectsTags(TagTimeline, AuthorTag(t.Author)).
					Finalize()
			},
			MapToUpdateQuery: func(t Tweet) (tablestore.UpdateQuery, error) {
				return tablestore.BuildUpdateQuery(Table).
					Where(ColumnID+" = ?", t.ID).
					AffectsTags(TagTimeline, AuthorTag(t.Author)).
					Finalize()
			},
			MapToRow: tweetToRow,
		},
		DeleteResolver: tablestore.DefaultDeleteResolver[Tweet]{
			MapToDeleteQuery: func(t Tweet) (tablestore.DeleteQuery, error) {
				return tablestore.BuildDeleteQuery(Table).
					Where(ColumnID+" = ?", t.ID).
					AffectsTags(TagTimeline, AuthorTag(t.Author)).
					Finalize()
			},
		},
	}
}

func tweetToRow(t Tweet) (tablestore.Row, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	hashtags := t.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}

	encoded, err := tablestore.JSONValue(hashtags)
	if err != nil {
		return nil, err
	}

	return tablestore.Row{
		ColumnID:        t.ID,
		ColumnAuthor:    t.Author,
		ColumnContent:   t.Content,
		ColumnHashtags:  encoded,
		ColumnCreatedAt: t.CreatedAt.UTC(),
	}, nil
}

func tweetFromRow(row tablestore.Row) (Tweet, error) {
	var (
		t   Tweet
		err error
	)

	if t.ID, err = row.String(ColumnID); err != nil {
		return Tweet{}, err
	}

	if t.Author, err = row.String(ColumnAuthor); err != nil {
		return Tweet{}, err
	}

	if t.Content, err = row.String(ColumnContent); err != nil {
		return Tweet{}, err
	}

	if err = row.DecodeJSON(ColumnHashtags, &t.Hashtags); err != nil {
		return Tweet{}, err
	}

	if t.CreatedAt, err = row.Time(ColumnCreatedAt); err != nil {
		return Tweet{}, err
	}

	return t, nil
}
