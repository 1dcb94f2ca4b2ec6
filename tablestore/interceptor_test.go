package tablestore_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/testutil/storagestub"
	"github.com/AntonStoeckl/reactive-tablestore-go/testutil/testdoubles"
)

func recordingInterceptor(name string, trace *[]string) tablestore.Interceptor {
	return func(ctx context.Context, op tablestore.Operation, next tablestore.Chain) (any, error) {
		*trace = append(*trace, name+" before "+string(op.Kind()))
		result, err := next(ctx, op)
		*trace = append(*trace, name+" after")

		return result, err
	}
}

func Test_Interceptors_When_OperationRuns_Then_TheyWrapItInConfiguredOrder(t *testing.T) {
	// arrange
	var trace []string
	stub := storagestub.New()
	stub.QueryFunc = func(context.Context, tablestore.Query) (tablestore.Cursor, error) {
		trace = append(trace, "query")
		return storagestub.NewSliceCursor(), nil
	}
	store := newStore(t, stub, tablestore.WithInterceptors(
		recordingInterceptor("outer", &trace),
		recordingInterceptor("inner", &trace),
	))

	// act
	_, err := preparedUsersList(t, store).ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{
		"outer before get_list",
		"inner before get_list",
		"query",
		"inner after",
		"outer after",
	}, trace)
}

func Test_Interceptors_When_TypeMappingIsMissing_Then_TheyAreNotInvoked(t *testing.T) {
	// arrange
	var trace []string
	stub := storagestub.New()
	store := newStore(t, stub, tablestore.WithInterceptors(recordingInterceptor("outer", &trace)))

	putPrepared, err := tablestore.PutObject(store, unmapped{Value: "x"}).Prepare()
	require.NoError(t, err)

	getPrepared, err := tablestore.GetListOfObjects[unmapped](store).WithQuery(usersQuery(t)).Prepare()
	require.NoError(t, err)

	// act
	_, putErr := putPrepared.ExecuteNow(context.Background())
	_, getErr := getPrepared.ExecuteNow(context.Background())

	// assert
	assert.ErrorIs(t, putErr, tablestore.ErrMissingTypeMapping)
	assert.ErrorIs(t, putErr, tablestore.ErrStoreOperationFailed)
	assert.ErrorIs(t, getErr, tablestore.ErrMissingTypeMapping)
	assert.Empty(t, trace)
	assert.Empty(t, stub.Calls())
}

func Test_Interceptors_When_OneDoesNotCallNext_Then_StorageIsNotTouched(t *testing.T) {
	// arrange
	cached := []user{{ID: 1, Name: "cached"}}
	stub := storagestub.New()
	shortCircuit := func(_ context.Context, op tablestore.Operation, _ tablestore.Chain) (any, error) {
		if op.Kind() == tablestore.OperationGetList {
			return cached, nil
		}

		return nil, errors.New("unexpected operation")
	}
	store := newStore(t, stub, tablestore.WithInterceptors(shortCircuit))

	// act
	users, err := preparedUsersList(t, store).ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, cached, users)
	assert.Empty(t, stub.Calls())
}

func Test_Interceptors_When_ResultHasWrongType_Then_OperationFails(t *testing.T) {
	// arrange
	wrongType := func(context.Context, tablestore.Operation, tablestore.Chain) (any, error) {
		return "not a list", nil
	}
	store := newStore(t, storagestub.New(), tablestore.WithInterceptors(wrongType))

	// act
	_, err := preparedUsersList(t, store).ExecuteNow(context.Background())

	// assert
	assert.ErrorIs(t, err, tablestore.ErrUnexpectedChainResult)
}

func Test_Interceptors_When_OneFails_Then_ErrorIsWrappedWithTheOperation(t *testing.T) {
	// arrange
	errDenied := errors.New("denied")
	deny := func(context.Context, tablestore.Operation, tablestore.Chain) (any, error) {
		return nil, errDenied
	}
	store := newStore(t, storagestub.New(), tablestore.WithInterceptors(deny))

	prepared, err := tablestore.PutObject(store, user{ID: 1}).Prepare()
	require.NoError(t, err)

	// act
	_, err = prepared.ExecuteNow(context.Background())

	// assert
	assert.ErrorIs(t, err, errDenied)

	var operationErr *tablestore.StoreOperationError
	require.True(t, errors.As(err, &operationErr))
	assert.Equal(t, tablestore.OperationPutObject, operationErr.Operation)
}

func Test_Interceptors_When_ContextIsReplaced_Then_StorageReceivesIt(t *testing.T) {
	// arrange
	var seen tablestore.ConsistencyLevel
	stub := storagestub.New()
	stub.QueryFunc = func(ctx context.Context, _ tablestore.Query) (tablestore.Cursor, error) {
		seen = tablestore.GetConsistencyLevel(ctx)
		return storagestub.NewSliceCursor(), nil
	}
	eventual := func(ctx context.Context, op tablestore.Operation, next tablestore.Chain) (any, error) {
		return next(tablestore.WithEventualConsistency(ctx), op)
	}
	store := newStore(t, stub, tablestore.WithInterceptors(eventual))

	// act
	_, err := preparedUsersList(t, store).ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, tablestore.EventualConsistency, seen)
}

func Test_NewStore_When_InterceptorIsNil_Then_ItFails(t *testing.T) {
	// act
	_, err := tablestore.NewStore(storagestub.New(), tablestore.WithInterceptors(nil))

	// assert
	assert.ErrorIs(t, err, tablestore.ErrNilInterceptor)
}

func Test_LoggingInterceptor_When_OperationSucceeds_Then_DebugLogIsWritten(t *testing.T) {
	// arrange
	logSpy := testdoubles.NewLogHandlerSpy()
	store := newStore(t, storagestub.New(), tablestore.WithInterceptors(tablestore.LoggingInterceptor(logSpy.Logger())))

	// act
	_, err := preparedUsersList(t, store).ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelDebug, "tablestore operation completed").
		WithAttributeValue("operation", string(tablestore.OperationGetList)).
		WithAttribute("data").
		WithAttributeValue("result", "[]").
		WithDurationMS().
		Assert())
}

func Test_LoggingInterceptor_When_OperationFails_Then_ErrorLogIsWritten(t *testing.T) {
	// arrange
	logSpy := testdoubles.NewLogHandlerSpy()
	stub := storagestub.New()
	stub.QueryFunc = func(context.Context, tablestore.Query) (tablestore.Cursor, error) {
		return nil, storagestub.ErrStubFailure
	}
	store := newStore(t, stub, tablestore.WithInterceptors(tablestore.LoggingInterceptor(logSpy.Logger())))

	// act
	_, err := preparedUsersList(t, store).ExecuteNow(context.Background())

	// assert
	require.Error(t, err)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelError, "tablestore operation failed").
		WithAttribute("error").
		WithAttributeValue("operation", string(tablestore.OperationGetList)).
		Assert())
}

func Test_ObservabilityInterceptor_When_OperationSucceeds_Then_SpanAndDurationAreRecorded(t *testing.T) {
	// arrange
	metrics := testdoubles.NewMetricsCollectorSpy()
	tracing := testdoubles.NewTracingCollectorSpy()
	store := newStore(t, storagestub.New(), tablestore.WithInterceptors(
		tablestore.ObservabilityInterceptor(metrics, tracing),
	))

	// act
	_, err := preparedUsersList(t, store).ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, metrics.HasDurationRecordForMetric(tablestore.MetricOperationDuration).
		WithOperation(string(tablestore.OperationGetList)).
		WithStatus(tablestore.StatusSuccess).
		Assert())
	assert.True(t, tracing.HasSpanRecordForName("tablestore.get_list").
		WithStatus(tablestore.StatusSuccess).
		WithStartAttribute(tablestore.LabelOperation, string(tablestore.OperationGetList)).
		Assert())
	assert.Equal(t, 0, metrics.CountCounterRecordsForMetric(tablestore.MetricOperationErrors))
}

func Test_ObservabilityInterceptor_When_OperationFails_Then_ErrorIsCountedAndSpanFailed(t *testing.T) {
	// arrange
	metrics := testdoubles.NewMetricsCollectorSpy()
	tracing := testdoubles.NewTracingCollectorSpy()
	stub := storagestub.New()
	stub.InsertFunc = func(context.Context, tablestore.InsertQuery, tablestore.Row) (int64, error) {
		return 0, tablestore.ErrTransactionConflict
	}
	store := newStore(t, stub, tablestore.WithInterceptors(
		tablestore.ObservabilityInterceptor(metrics, tracing),
	))

	prepared, err := tablestore.PutObject(store, user{ID: 1, Name: "anna"}).Prepare()
	require.NoError(t, err)

	// act
	_, err = prepared.ExecuteNow(context.Background())

	// assert
	require.Error(t, err)
	assert.True(t, metrics.HasCounterRecordForMetric(tablestore.MetricOperationErrors).
		WithOperation(string(tablestore.OperationPutObject)).
		WithErrorType("transaction_conflict").
		Assert())
	assert.True(t, tracing.HasSpanRecordForName("tablestore.put_object").
		WithStatus(tablestore.StatusError).
		WithEndAttribute(tablestore.LabelErrorType, "transaction_conflict").
		Assert())
}

func Test_ObservabilityInterceptor_When_CollectorsAreNil_Then_OperationStillRuns(t *testing.T) {
	// arrange
	store := newStore(t, storagestub.New(), tablestore.WithInterceptors(tablestore.ObservabilityInterceptor(nil, nil)))

	// act
	_, err := preparedUsersList(t, store).ExecuteNow(context.Background())

	// assert
	assert.NoError(t, err)
}

/***** retry *****/

func newRetryInterceptor(t *testing.T, options ...tablestore.RetryOption) tablestore.Interceptor {
	t.Helper()

	interceptor, err := tablestore.RetryInterceptor(append([]tablestore.RetryOption{
		tablestore.WithBaseDelay(time.Millisecond),
		tablestore.WithJitterFactor(0),
	}, options...)...)
	require.NoError(t, err)

	return interceptor
}

func failingChain(failures int, err error, calls *int) tablestore.Chain {
	return func(context.Context, tablestore.Operation) (any, error) {
		*calls++
		if *calls <= failures {
			return nil, err
		}

		return "done", nil
	}
}

func Test_RetryInterceptor_When_ConflictIsTransient_Then_OperationIsRetriedUntilItSucceeds(t *testing.T) {
	// arrange
	metrics := testdoubles.NewMetricsCollectorSpy()
	logSpy := testdoubles.NewLogHandlerSpy()
	interceptor := newRetryInterceptor(t, tablestore.WithRetryMetrics(metrics), tablestore.WithRetryLogger(logSpy.Logger()))
	calls := 0
	op := tablestore.NewOperation(tablestore.OperationPutObjects, nil)

	// act
	result, err := interceptor(context.Background(), op, failingChain(2, tablestore.ErrTransactionConflict, &calls))

	// assert
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, metrics.CountCounterRecordsForMetric(tablestore.MetricOperationRetries))
	assert.True(t, metrics.HasCounterRecordForMetric(tablestore.MetricOperationRetries).
		WithOperation(string(tablestore.OperationPutObjects)).
		WithLabel(tablestore.LabelAttempt, "1").
		WithErrorType("transaction_conflict").
		Assert())
	assert.Equal(t, 2, logSpy.CountLogsWithMessage("tablestore operation failed with retryable error, retrying"))
}

func Test_RetryInterceptor_When_ErrorIsNotRetryable_Then_ItFailsFast(t *testing.T) {
	// arrange
	interceptor := newRetryInterceptor(t)
	calls := 0

	// act
	_, err := interceptor(
		context.Background(),
		tablestore.NewOperation(tablestore.OperationGetList, nil),
		failingChain(5, storagestub.ErrStubFailure, &calls),
	)

	// assert
	assert.ErrorIs(t, err, storagestub.ErrStubFailure)
	assert.Equal(t, 1, calls)
}

func Test_RetryInterceptor_When_AttemptsAreExhausted_Then_LastErrorIsReturned(t *testing.T) {
	// arrange
	interceptor := newRetryInterceptor(t, tablestore.WithMaxAttempts(2))
	calls := 0

	// act
	_, err := interceptor(
		context.Background(),
		tablestore.NewOperation(tablestore.OperationGetList, nil),
		failingChain(5, tablestore.ErrTransactionConflict, &calls),
	)

	// assert
	assert.ErrorIs(t, err, tablestore.ErrTransactionConflict)
	assert.Equal(t, 2, calls)
}

func Test_RetryInterceptor_When_CustomErrorIsRetryable_Then_ItIsRetried(t *testing.T) {
	// arrange
	interceptor := newRetryInterceptor(t, tablestore.WithRetryableError(storagestub.ErrStubFailure))
	calls := 0

	// act
	_, err := interceptor(
		context.Background(),
		tablestore.NewOperation(tablestore.OperationGetList, nil),
		failingChain(1, storagestub.ErrStubFailure, &calls),
	)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func Test_RetryInterceptor_When_ContextIsCancelledDuringBackoff_Then_ItStops(t *testing.T) {
	// arrange
	interceptor, err := tablestore.RetryInterceptor(tablestore.WithBaseDelay(time.Hour))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	chain := func(context.Context, tablestore.Operation) (any, error) {
		calls++
		cancel()

		return nil, tablestore.ErrTransactionConflict
	}

	// act
	_, err = interceptor(ctx, tablestore.NewOperation(tablestore.OperationGetList, nil), chain)

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, tablestore.ErrTransactionConflict)
	assert.Equal(t, 1, calls)
}

func Test_RetryInterceptor_When_OptionsAreInvalid_Then_ItFails(t *testing.T) {
	testCases := []struct {
		name     string
		option   tablestore.RetryOption
		expected error
	}{
		{name: "max attempts", option: tablestore.WithMaxAttempts(0), expected: tablestore.ErrInvalidMaxAttempts},
		{name: "base delay", option: tablestore.WithBaseDelay(-time.Second), expected: tablestore.ErrNegativeBaseDelay},
		{name: "jitter factor", option: tablestore.WithJitterFactor(1.5), expected: tablestore.ErrInvalidJitterFactor},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tablestore.RetryInterceptor(tc.option)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func Test_RetryInterceptor_When_StorageConflictsInsideStore_Then_BatchIsRetriedAsAWhole(t *testing.T) {
	// arrange
	stub := storagestub.New()
	attempts := 0
	stub.InsertFunc = func(context.Context, tablestore.InsertQuery, tablestore.Row) (int64, error) {
		attempts++
		if attempts == 1 {
			return 0, tablestore.ErrTransactionConflict
		}

		return int64(attempts), nil
	}
	store := newStore(t, stub, tablestore.WithInterceptors(newRetryInterceptor(t)))
	subscription := observeAll(t, store)

	prepared, err := tablestore.PutObjects(store, threeUsers()[:1]).WithPutResolver(insertingUserResolver(-1)).Prepare()
	require.NoError(t, err)

	// act
	results, err := prepared.ExecuteNow(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, results.NumberOfInserts())
	assert.Equal(t, 1, stub.Rollbacks())
	assert.Equal(t, 1, stub.Commits())
	assert.Equal(t, []tablestore.TableNameString{usersTable}, receiveChanges(t, subscription).AffectedTables())
}
