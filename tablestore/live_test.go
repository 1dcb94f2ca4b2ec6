package tablestore_test

import (
	"context"
	"iter"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/testutil/storagestub"
	"github.com/AntonStoeckl/reactive-tablestore-go/testutil/testdoubles"
)

func preparedUsersList(t *testing.T, store *tablestore.Store) tablestore.PreparedGet[[]user] {
	t.Helper()

	prepared, err := tablestore.GetListOfObjects[user](store).WithQuery(usersQuery(t)).Prepare()
	require.NoError(t, err)

	return prepared
}

func putUser(t *testing.T, store *tablestore.Store, u user) {
	t.Helper()

	prepared, err := tablestore.PutObject(store, u).Prepare()
	require.NoError(t, err)

	_, err = prepared.ExecuteNow(context.Background())
	require.NoError(t, err)
}

func Test_AsLiveSequence_When_RelatedChangesArePublished_Then_ReadIsReExecuted(t *testing.T) {
	// arrange
	stub := storagestub.New()
	stub.Seed(usersTable, userRow(1, "anna"))
	metrics := testdoubles.NewMetricsCollectorSpy()
	store := newStore(t, stub, tablestore.WithMetrics(metrics))

	next, stop := iter.Pull2(preparedUsersList(t, store).AsLiveSequence(context.Background()))
	defer stop()

	// act
	first, firstErr, firstOK := next()
	putUser(t, store, user{ID: 2, Email: "bert@example.com", Name: "bert"})
	second, secondErr, secondOK := next()

	// assert
	require.True(t, firstOK)
	require.NoError(t, firstErr)
	assert.Len(t, first, 1)

	require.True(t, secondOK)
	require.NoError(t, secondErr)
	assert.Len(t, second, 2)
	assert.Equal(t, "bert", second[1].Name)

	assert.Equal(t, 2, stub.CallCount(storagestub.CallQuery))
	assert.Equal(t, 1, metrics.CountCounterRecordsForMetric(tablestore.MetricLiveQueryReexecution))
}

func Test_AsLiveSequence_When_ChangesArriveDuringFirstRead_Then_TheyAreNotMissed(t *testing.T) {
	// arrange
	stub := storagestub.New()
	store := newStore(t, stub)

	var queries atomic.Int32
	stub.QueryFunc = func(context.Context, tablestore.Query) (tablestore.Cursor, error) {
		if queries.Add(1) == 1 {
			store.LowLevel().NotifyAboutChanges(context.Background(), changesInTables(t, usersTable))
		}

		return storagestub.NewSliceCursor(), nil
	}

	next, stop := iter.Pull2(preparedUsersList(t, store).AsLiveSequence(context.Background()))
	defer stop()

	// act
	_, _, firstOK := next()
	_, _, secondOK := next()

	// assert
	assert.True(t, firstOK)
	assert.True(t, secondOK)
	assert.Equal(t, int32(2), queries.Load())
}

func Test_AsLiveSequence_When_UnrelatedChangesArePublished_Then_ReadIsNotReExecuted(t *testing.T) {
	// arrange
	stub := storagestub.New()
	store := newStore(t, stub)

	next, stop := iter.Pull2(preparedUsersList(t, store).AsLiveSequence(context.Background()))
	defer stop()

	_, _, ok := next()
	require.True(t, ok)

	// act
	store.LowLevel().NotifyAboutChanges(context.Background(), changesInTables(t, tweetsTable))
	stop()

	// assert
	assert.Equal(t, 1, stub.CallCount(storagestub.CallQuery))
}

func Test_AsLiveSequence_When_ReadObservesNothing_Then_SingleValueIsYielded(t *testing.T) {
	// arrange
	stub := storagestub.New()
	store := newStore(t, stub)

	rawQuery, err := tablestore.BuildRawQuery("SELECT 1").Finalize()
	require.NoError(t, err)

	prepared, err := store.Get().Rows().WithRawQuery(rawQuery).Prepare()
	require.NoError(t, err)

	// act
	emissions := 0
	for rows, err := range prepared.AsLiveSequence(context.Background()) {
		require.NoError(t, err)
		assert.Empty(t, rows)
		emissions++
	}

	// assert
	assert.Equal(t, 1, emissions)
}

func Test_AsLiveSequence_When_ContextIsCancelled_Then_SequenceEndsAndSubscriptionIsReleased(t *testing.T) {
	// arrange
	stub := storagestub.New()
	metrics := testdoubles.NewMetricsCollectorSpy()
	store := newStore(t, stub, tablestore.WithMetrics(metrics))
	ctx, cancel := context.WithCancel(context.Background())

	next, stop := iter.Pull2(preparedUsersList(t, store).AsLiveSequence(ctx))
	defer stop()

	_, _, ok := next()
	require.True(t, ok)

	// act
	cancel()
	_, _, ok = next()

	// assert
	assert.False(t, ok)
	assert.Equal(t, 1, stub.CallCount(storagestub.CallQuery))

	records := metrics.GetValueRecords()
	require.NotEmpty(t, records)
	assert.Equal(t, float64(0), records[len(records)-1].Value)
}

func Test_AsLiveSequence_When_ConsumerBreaks_Then_SequenceStops(t *testing.T) {
	// arrange
	stub := storagestub.New()
	store := newStore(t, stub)

	// act
	emissions := 0
	for _, err := range preparedUsersList(t, store).AsLiveSequence(context.Background()) {
		require.NoError(t, err)
		emissions++

		break
	}

	// assert
	assert.Equal(t, 1, emissions)
}

func Test_AsLiveSequence_When_ReExecutionFails_Then_ErrorIsYieldedOnceAndSequenceEnds(t *testing.T) {
	// arrange
	stub := storagestub.New()
	logger := testdoubles.NewLogHandlerSpy()
	store := newStore(t, stub, tablestore.WithLogger(logger.Logger()))

	var queries atomic.Int32
	stub.QueryFunc = func(context.Context, tablestore.Query) (tablestore.Cursor, error) {
		if queries.Add(1) > 1 {
			return nil, storagestub.ErrStubFailure
		}

		return storagestub.NewSliceCursor(), nil
	}

	next, stop := iter.Pull2(preparedUsersList(t, store).AsLiveSequence(context.Background()))
	defer stop()

	_, _, ok := next()
	require.True(t, ok)

	// act
	store.LowLevel().NotifyAboutChanges(context.Background(), changesInTables(t, usersTable))
	value, err, errOK := next()
	_, _, endOK := next()

	// assert
	require.True(t, errOK)
	assert.ErrorIs(t, err, storagestub.ErrStubFailure)
	assert.ErrorIs(t, err, tablestore.ErrStoreOperationFailed)
	assert.Nil(t, value)
	assert.False(t, endOK)
	assert.True(t, logger.HasErrorLog("live query execution failed"))
}

func Test_AsLiveSequence_When_ReadIsACursor_Then_EveryEmissionIsAFreshCursor(t *testing.T) {
	// arrange
	stub := storagestub.New()
	stub.Seed(usersTable, userRow(1, "anna"))
	store := newStore(t, stub)

	prepared, err := store.Get().Cursor().WithQuery(usersQuery(t)).Prepare()
	require.NoError(t, err)

	next, stop := iter.Pull2(prepared.AsLiveSequence(context.Background()))
	defer stop()

	// act
	first, _, _ := next()
	require.NoError(t, first.Close())
	store.LowLevel().NotifyAboutChanges(context.Background(), changesInTables(t, usersTable))
	second, _, ok := next()

	// assert
	require.True(t, ok)
	defer func() { _ = second.Close() }()
	assert.NotSame(t, first, second)
	assert.True(t, second.Next())
}

func Test_AsLiveSequence_When_StoreIsClosed_Then_ErrorIsYielded(t *testing.T) {
	// arrange
	stub := storagestub.New()
	store, err := tablestore.NewStore(stub, tablestore.WithTypeMapping(userTypeMapping()))
	require.NoError(t, err)
	prepared := preparedUsersList(t, store)
	require.NoError(t, store.Close())

	// act
	var errs []error
	for _, err := range prepared.AsLiveSequence(context.Background()) {
		errs = append(errs, err)
	}

	// assert
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], tablestore.ErrStoreClosed)
}
