package tablestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/testutil/storagestub"
)

func Test_PutObject_When_NoRowIsUpdated_Then_ItIsInsertedAndChangesArePublished(t *testing.T) {
	// arrange
	stub := storagestub.New()
	store := newStore(t, stub)
	subscription := observeAll(t, store)

	prepared, err := tablestore.PutObject(store, user{ID: 1, Email: "anna@example.com", Name: "anna"}).Prepare()
	require.NoError(t, err)

	// act
	result, err := prepared.ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, result.WasInserted())

	id, ok := result.InsertedID()
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	assert.Equal(t, []string{
		storagestub.CallBeginTransaction,
		storagestub.CallUpdate,
		storagestub.CallInsert,
		storagestub.CallSetTransactionSuccessful,
		storagestub.CallEndTransaction,
	}, stub.Calls())
	assert.Equal(t, 1, stub.Commits())

	changes := receiveChanges(t, subscription)
	assert.Equal(t, []tablestore.TableNameString{usersTable}, changes.AffectedTables())
	assert.Empty(t, changes.AffectedTags())
}

func Test_PutObject_When_RowIsUpdated_Then_NothingIsInserted(t *testing.T) {
	// arrange
	stub := storagestub.New()
	stub.UpdateFunc = func(context.Context, tablestore.UpdateQuery, tablestore.Row) (int64, error) {
		return 1, nil
	}
	store := newStore(t, stub)
	subscription := observeAll(t, store)

	prepared, err := tablestore.PutObject(store, tweet{ID: 5, Author: "anna", Content: "edited"}).Prepare()
	require.NoError(t, err)

	// act
	result, err := prepared.ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, result.WasUpdated())
	assert.Equal(t, 0, stub.CallCount(storagestub.CallInsert))

	changes := receiveChanges(t, subscription)
	assert.Equal(t, []tablestore.TableNameString{tweetsTable}, changes.AffectedTables())
	assert.Equal(t, []tablestore.TagString{"timeline"}, changes.AffectedTags())
}

func Test_PutObject_When_InsertWritesNoRow_Then_NoChangesArePublished(t *testing.T) {
	// arrange
	stub := storagestub.New()
	stub.InsertFunc = func(context.Context, tablestore.InsertQuery, tablestore.Row) (int64, error) {
		return tablestore.NoRowID, nil
	}
	store := newStore(t, stub)
	subscription := observeAll(t, store)

	prepared, err := tablestore.PutObject(store, user{ID: 1, Name: "anna"}).Prepare()
	require.NoError(t, err)

	// act
	result, err := prepared.ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, result.WasNotInserted())
	assertNoPendingChanges(t, subscription)
}

func Test_PutObject_When_InsertFails_Then_TransactionIsRolledBackAndNothingIsPublished(t *testing.T) {
	// arrange
	stub := storagestub.New()
	stub.InsertFunc = func(context.Context, tablestore.InsertQuery, tablestore.Row) (int64, error) {
		return 0, storagestub.ErrStubFailure
	}
	store := newStore(t, stub)
	subscription := observeAll(t, store)

	prepared, err := tablestore.PutObject(store, user{ID: 1, Name: "anna"}).Prepare()
	require.NoError(t, err)

	// act
	_, err = prepared.ExecuteNow(context.Background())

	// assert
	assert.ErrorIs(t, err, storagestub.ErrStubFailure)
	assert.Equal(t, 1, stub.Rollbacks())
	assert.Equal(t, 0, stub.Commits())
	assert.False(t, stub.InTransaction())
	assertNoPendingChanges(t, subscription)
}

func Test_PutRow_When_NoResolverIsGiven_Then_PrepareFails(t *testing.T) {
	// arrange
	store := newStore(t, storagestub.New())

	// act
	_, err := store.Put().Row(userRow(1, "anna")).Prepare()

	// assert
	assert.ErrorIs(t, err, tablestore.ErrNilResolver)
}

func Test_PutRow_When_RowPutResolverIsGiven_Then_RowIsUpdatedByItsKeyOrInserted(t *testing.T) {
	// arrange
	stub := storagestub.New()
	var updateQueries []tablestore.UpdateQuery
	stub.UpdateFunc = func(_ context.Context, updateQuery tablestore.UpdateQuery, _ tablestore.Row) (int64, error) {
		updateQueries = append(updateQueries, updateQuery)
		return 0, nil
	}
	store := newStore(t, stub)

	resolver := tablestore.RowPutResolver{Table: usersTable, KeyColumns: []tablestore.ColumnString{"id"}}
	prepared, err := store.Put().Row(userRow(9, "ida")).WithPutResolver(resolver).Prepare()
	require.NoError(t, err)

	// act
	result, err := prepared.ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, result.WasInserted())
	require.Len(t, updateQueries, 1)
	assert.Equal(t, "id = ?", updateQueries[0].Where())
	assert.Equal(t, []any{int64(9)}, updateQueries[0].WhereArgs())
	assert.Len(t, stub.Rows(usersTable), 1)
}

func Test_PutRow_When_KeyColumnIsMissingFromRow_Then_ItFails(t *testing.T) {
	// arrange
	stub := storagestub.New()
	store := newStore(t, stub)

	resolver := tablestore.RowPutResolver{Table: usersTable, KeyColumns: []tablestore.ColumnString{"id"}}
	prepared, err := store.Put().Row(tablestore.Row{"name": "ida"}).WithPutResolver(resolver).Prepare()
	require.NoError(t, err)

	// act
	_, err = prepared.ExecuteNow(context.Background())

	// assert
	assert.ErrorIs(t, err, tablestore.ErrMissingKeyColumns)
	assert.Empty(t, stub.Calls())
}

func Test_PutObject_When_ExplicitResolverIsGiven_Then_TypeMappingIsNotNeeded(t *testing.T) {
	// arrange
	stub := storagestub.New()
	store := newStore(t, stub)

	resolver := putResolverFunc[unmapped](func(ctx context.Context, ll *tablestore.LowLevel, item unmapped) (tablestore.PutResult, error) {
		insertQuery, err := tablestore.BuildInsertQuery("unmapped").Finalize()
		if err != nil {
			return tablestore.PutResult{}, err
		}

		id, err := ll.Insert(ctx, insertQuery, tablestore.Row{"value": item.Value})
		if err != nil {
			return tablestore.PutResult{}, err
		}

		return tablestore.NewInsertResult(id, "unmapped"), nil
	})

	prepared, err := tablestore.PutObject(store, unmapped{Value: "x"}).WithPutResolver(resolver).Prepare()
	require.NoError(t, err)

	// act
	result, err := prepared.ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, result.WasInserted())
	assert.Equal(t, []tablestore.Row{{"value": "x"}}, stub.Rows("unmapped"))
}
