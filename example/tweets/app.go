package tweets

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore/sqlengine"
)

// ErrTweetNotFound is returned when deleting a tweet that does not exist.
var ErrTweetNotFound = errors.New("tweet not found")

// Config holds what App needs besides the database location.
type Config struct {
	StoreOptions  []tablestore.Option
	EngineOptions []sqlengine.Option
}

// App is the sample application: a tablestore.Store over a SQLite database with the tweets table.
type App struct {
	store *tablestore.Store
}

// Open opens the SQLite database at dsn, creates the tweets table if needed and builds the Store.
// Closing the App closes the database.
func Open(ctx context.Context, dsn string, cfg Config) (*App, error) {
	engine, err := sqlengine.OpenSQLite(dsn, cfg.EngineOptions...)
	if err != nil {
		return nil, err
	}

	createTable, err := tablestore.BuildRawQuery(createTableStatement).Finalize()
	if err != nil {
		return nil, errors.Join(err, engine.Close())
	}

	if err = engine.ExecuteSQL(ctx, createTable); err != nil {
		return nil, errors.Join(err, engine.Close())
	}

	options := append([]tablestore.Option{tablestore.WithTypeMapping(TypeMapping())}, cfg.StoreOptions...)

	store, err := tablestore.NewStore(engine, options...)
	if err != nil {
		return nil, errors.Join(err, engine.Close())
	}

	return &App{store: store}, nil
}

// Store exposes the underlying Store, e.g. to observe Changes.
func (a *App) Store() *tablestore.Store {
	return a.store
}

func (a *App) Close() error {
	return a.store.Close()
}

// Post creates a new tweet and stores it.
func (a *App) Post(ctx context.Context, tweet Tweet) (tablestore.PutResult, error) {
	prepared, err := tablestore.PutObject(a.store, tweet).Prepare()
	if err != nil {
		return tablestore.PutResult{}, err
	}

	return prepared.ExecuteNow(ctx)
}

// PostAll stores all tweets in one transaction, subscribers are notified once.
func (a *App) PostAll(ctx context.Context, tweets []Tweet) (tablestore.PutResults[Tweet], error) {
	prepared, err := tablestore.PutObjects(a.store, tweets).Prepare()
	if err != nil {
		return tablestore.PutResults[Tweet]{}, err
	}

	return prepared.ExecuteNow(ctx)
}

// Get returns the tweet with the given id or nil.
func (a *App) Get(ctx context.Context, id string) (*Tweet, error) {
	query, err := tablestore.BuildQuery().Table(Table).Where(ColumnID+" = ?", id).Finalize()
	if err != nil {
		return nil, err
	}

	prepared, err := tablestore.GetObject[Tweet](a.store).WithQuery(query).Prepare()
	if err != nil {
		return nil, err
	}

	return prepared.ExecuteNow(ctx)
}

// Delete deletes the tweet with the given id.
func (a *App) Delete(ctx context.Context, id string) error {
	tweet, err := a.Get(ctx, id)
	if err != nil {
		return err
	}

	if tweet == nil {
		return ErrTweetNotFound
	}

	prepared, err := tablestore.DeleteObject(a.store, *tweet).Prepare()
	if err != nil {
		return err
	}

	_, err = prepared.ExecuteNow(ctx)

	return err
}

// DeleteByAuthor deletes all tweets of the author and returns how many were deleted.
func (a *App) DeleteByAuthor(ctx context.Context, author string) (int64, error) {
	deleteQuery, err := tablestore.BuildDeleteQuery(Table).
		Where(ColumnAuthor+" = ?", strings.TrimSpace(author)).
		AffectsTags(TagTimeline, AuthorTag(author)).
		Finalize()
	if err != nil {
		return 0, err
	}

	prepared, err := a.store.Delete().ByQuery(deleteQuery).Prepare()
	if err != nil {
		return 0, err
	}

	result, err := prepared.ExecuteNow(ctx)
	if err != nil {
		return 0, err
	}

	return result.NumberOfRowsDeleted(), nil
}

// Timeline prepares the read of the newest tweets, optionally of one author only.
// A limit of 0 means no limit.
func (a *App) Timeline(author string, limit uint) (tablestore.PreparedGet[[]Tweet], error) {
	builder := tablestore.BuildQuery().
		Table(Table).
		OrderBy(tablestore.Desc(ColumnCreatedAt), tablestore.Desc(ColumnID))

	if author = strings.TrimSpace(author); author != "" {
		builder = builder.Where(ColumnAuthor+" = ?", author)
	}

	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, err := builder.Finalize()
	if err != nil {
		return tablestore.PreparedGet[[]Tweet]{}, err
	}

	return tablestore.GetListOfObjects[Tweet](a.store).WithQuery(query).Prepare()
}

// List returns the newest tweets, see Timeline.
func (a *App) List(ctx context.Context, author string, limit uint) ([]Tweet, error) {
	prepared, err := a.Timeline(author, limit)
	if err != nil {
		return nil, err
	}

	return prepared.ExecuteNow(ctx)
}

// Watch yields the timeline now and again after every change of the tweets table, until ctx is done.
func (a *App) Watch(ctx context.Context, author string, limit uint) iter.Seq2[[]Tweet, error] {
	prepared, err := a.Timeline(author, limit)
	if err != nil {
		return func(yield func([]Tweet, error) bool) {
			yield(nil, err)
		}
	}

	return prepared.AsLiveSequence(ctx)
}

// Count returns the number of tweets, optionally of one author only.
func (a *App) Count(ctx context.Context, author string) (int, error) {
	builder := tablestore.BuildQuery().Table(Table).Columns(ColumnID)
	if author = strings.TrimSpace(author); author != "" {
		builder = builder.Where(ColumnAuthor+" = ?", author)
	}

	query, err := builder.Finalize()
	if err != nil {
		return 0, err
	}

	prepared, err := a.store.Get().NumberOfResults().WithQuery(query).Prepare()
	if err != nil {
		return 0, err
	}

	return prepared.ExecuteNow(ctx)
}
