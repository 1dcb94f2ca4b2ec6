package tablestore

import (
	"context"
	"errors"
	"time"
)

// effectResult is satisfied by PutResult and DeleteResult.
type effectResult interface {
	Changes() (Changes, bool)
}

type batchPerformer[T any, R effectResult] func(ctx context.Context, ll *LowLevel, item T) (R, error)

// resolveBatch resolves the performers of all items, so a missing type mapping rejects the whole batch
// before the storage is touched.
func resolveBatch[T any, R effectResult](
	items []T,
	resolve func(item T) (batchPerformer[T, R], error),
) ([]batchPerformer[T, R], error) {

	performers := make([]batchPerformer[T, R], 0, len(items))
	for _, item := range items {
		performer, err := resolve(item)
		if err != nil {
			return nil, err
		}

		performers = append(performers, performer)
	}

	return performers, nil
}

// executeBatch runs one mutation per item in input order with the performers from resolveBatch.
//
// Without a transaction, the Changes of every item with a real effect are published
// right after that item. With a transaction, nothing is published per item; after the transaction
// was committed, the merged Changes of all items with a real effect are published once.
// On failure no Changes are published and no results are returned.
// When ctx carries an enclosing transaction, publishing waits until the outermost one has committed.
func executeBatch[T any, R effectResult](
	ctx context.Context,
	s *Store,
	kind OperationKind,
	items []T,
	useTransaction bool,
	performers []batchPerformer[T, R],
) ([]ItemResult[T, R], error) {

	ll := s.lowLevel

	if !useTransaction {
		results := make([]ItemResult[T, R], 0, len(items))
		for i, item := range items {
			result, err := performers[i](ctx, ll, item)
			if err != nil {
				return nil, err
			}

			results = append(results, ItemResult[T, R]{Item: item, Result: result})

			if changes, ok := result.Changes(); ok {
				ll.NotifyAboutChanges(ctx, changes)
			}
		}

		return results, nil
	}

	spanAttrs := map[string]string{LabelOperation: string(kind), logAttrItemCount: itemCount(len(items))}
	spanCtx, span := s.observer.startSpan(ctx, SpanNameTransaction, spanAttrs)
	start := time.Now()

	results, err := runInTransaction(spanCtx, ll, items, performers)

	duration := time.Since(start)
	status := statusOf(err)
	s.observer.recordDuration(spanCtx, MetricTransactionDuration, duration, map[string]string{
		LabelOperation: string(kind),
		LabelStatus:    status,
	})

	if err != nil {
		s.observer.finishSpan(span, status, map[string]string{LabelErrorType: errorTypeOf(err)})
		s.observer.logInfo(
			spanCtx,
			logMsgTransactionFailed,
			logAttrOperation, string(kind),
			logAttrItemCount, len(items),
			logAttrDurationMS, toMilliseconds(duration),
			logAttrError, err.Error(),
		)

		return nil, err
	}

	s.observer.finishSpan(span, status, nil)
	s.observer.logInfo(
		spanCtx,
		logMsgTransactionEnded,
		logAttrOperation, string(kind),
		logAttrItemCount, len(items),
		logAttrDurationMS, toMilliseconds(duration),
	)

	var merged Changes
	for _, itemResult := range results {
		if changes, ok := itemResult.Result.Changes(); ok {
			merged = merged.Merge(changes)
		}
	}

	if !merged.IsEmpty() {
		ll.NotifyAboutChanges(ctx, merged)
	}

	return results, nil
}

// runInTransaction performs all items in one transaction. EndTransaction runs on every exit path.
func runInTransaction[T any, R effectResult](
	ctx context.Context,
	ll *LowLevel,
	items []T,
	performers []batchPerformer[T, R],
) (results []ItemResult[T, R], err error) {

	txCtx, err := ll.BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if endErr := ll.EndTransaction(txCtx); endErr != nil {
			err = errors.Join(err, endErr)
		}

		if err != nil {
			results = nil
		}
	}()

	results = make([]ItemResult[T, R], 0, len(items))
	for i, item := range items {
		result, performErr := performers[i](txCtx, ll, item)
		if performErr != nil {
			return nil, performErr
		}

		results = append(results, ItemResult[T, R]{Item: item, Result: result})
	}

	if err = ll.SetTransactionSuccessful(txCtx); err != nil {
		return nil, err
	}

	return results, nil
}
