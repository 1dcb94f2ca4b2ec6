package tablestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/testutil/storagestub"
)

const (
	usersTable  = "users"
	tweetsTable = "tweets"
)

type user struct {
	ID    int64
	Email string
	Name  string
}

type tweet struct {
	ID      int64
	Author  string
	Content string
}

type unmapped struct {
	Value string
}

type putResolverFunc[T any] func(ctx context.Context, ll *tablestore.LowLevel, item T) (tablestore.PutResult, error)

func (f putResolverFunc[T]) PerformPut(ctx context.Context, ll *tablestore.LowLevel, item T) (tablestore.PutResult, error) {
	return f(ctx, ll, item)
}

type deleteResolverFunc[T any] func(ctx context.Context, ll *tablestore.LowLevel, item T) (tablestore.DeleteResult, error)

func (f deleteResolverFunc[T]) PerformDelete(
	ctx context.Context,
	ll *tablestore.LowLevel,
	item T,
) (tablestore.DeleteResult, error) {

	return f(ctx, ll, item)
}

func userTypeMapping() tablestore.TypeMapping[user] {
	return tablestore.TypeMapping[user]{
		GetResolver: tablestore.DefaultGetResolver[user]{
			MapFromRow: func(row tablestore.Row) (user, error) {
				id, err := row.Int64("id")
				if err != nil {
					return user{}, err
				}

				email, err := row.String("email")
				if err != nil {
					return user{}, err
				}

				name, err := row.String("name")
				if err != nil {
					return user{}, err
				}

				return user{ID: id, Email: email, Name: name}, nil
			},
		},
		PutResolver: tablestore.DefaultPutResolver[user]{
			MapToInsertQuery: func(user) (tablestore.InsertQuery, error) {
				return tablestore.BuildInsertQuery(usersTable).Returning("id").Finalize()
			},
			MapToUpdateQuery: func(u user) (tablestore.UpdateQuery, error) {
				return tablestore.BuildUpdateQuery(usersTable).Where("id = ?", u.ID).Finalize()
			},
			MapToRow: func(u user) (tablestore.Row, error) {
				return tablestore.Row{"id": u.ID, "email": u.Email, "name": u.Name}, nil
			},
		},
		DeleteResolver: tablestore.DefaultDeleteResolver[user]{
			MapToDeleteQuery: func(u user) (tablestore.DeleteQuery, error) {
				return tablestore.BuildDeleteQuery(usersTable).Where("id = ?", u.ID).Finalize()
			},
		},
	}
}

func tweetTypeMapping() tablestore.TypeMapping[tweet] {
	return tablestore.TypeMapping[tweet]{
		PutResolver: tablestore.DefaultPutResolver[tweet]{
			MapToInsertQuery: func(tweet) (tablestore.InsertQuery, error) {
				return tablestore.BuildInsertQuery(tweetsTable).AffectsTags("timeline").Finalize()
			},
			MapToUpdateQuery: func(t tweet) (tablestore.UpdateQuery, error) {
				return tablestore.BuildUpdateQuery(tweetsTable).Where("id = ?", t.ID).AffectsTags("timeline").Finalize()
			},
			MapToRow: func(t tweet) (tablestore.Row, error) {
				return tablestore.Row{"id": t.ID, "author": t.Author, "content": t.Content}, nil
			},
		},
		DeleteResolver: tablestore.DefaultDeleteResolver[tweet]{
			MapToDeleteQuery: func(t tweet) (tablestore.DeleteQuery, error) {
				return tablestore.BuildDeleteQuery(tweetsTable).Where("id = ?", t.ID).Finalize()
			},
		},
	}
}

// newStore builds a Store with the user and tweet type mappings on top of the stub.
func newStore(t *testing.T, stub *storagestub.StorageStub, options ...tablestore.Option) *tablestore.Store {
	t.Helper()

	allOptions := append([]tablestore.Option{
		tablestore.WithTypeMapping(userTypeMapping()),
		tablestore.WithTypeMapping(tweetTypeMapping()),
	}, options...)

	store, err := tablestore.NewStore(stub, allOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func userRow(id int64, name string) tablestore.Row {
	return tablestore.Row{"id": id, "email": name + "@example.com", "name": name}
}

func usersQuery(t *testing.T) tablestore.Query {
	t.Helper()

	query, err := tablestore.BuildQuery().Table(usersTable).Finalize()
	require.NoError(t, err)

	return query
}

func changesInTables(t *testing.T, tables ...tablestore.TableNameString) tablestore.Changes {
	t.Helper()

	changes, err := tablestore.NewChanges(tables, nil)
	require.NoError(t, err)

	return changes
}

func observeAll(t *testing.T, store *tablestore.Store) *tablestore.Subscription {
	t.Helper()

	subscription, err := store.ObserveChanges(context.Background())
	require.NoError(t, err)
	t.Cleanup(subscription.Cancel)

	return subscription
}

// receiveChanges waits for the pending Changes of the subscription.
func receiveChanges(t *testing.T, subscription *tablestore.Subscription) tablestore.Changes {
	t.Helper()

	select {
	case changes, ok := <-subscription.C():
		require.True(t, ok, "subscription channel was closed")
		return changes
	case <-time.After(time.Second):
		t.Fatal("no changes received")
		return tablestore.Changes{}
	}
}

// assertNoPendingChanges works because publishing is synchronous with the operation.
func assertNoPendingChanges(t *testing.T, subscription *tablestore.Subscription) {
	t.Helper()

	select {
	case changes, ok := <-subscription.C():
		if ok {
			t.Fatalf("unexpected changes: %s", changes)
		}
	default:
	}
}
