package tablestore

import (
	"context"
	"io"
	"iter"
)

func liveSequence[R any](
	ctx context.Context,
	s *Store,
	op Operation,
	filter ChangesFilter,
	execute func(ctx context.Context) (R, error),
) iter.Seq2[R, error] {

	return func(yield func(R, error) bool) {
		var empty R

		if filter.MatchesAll() {
			value, err := execute(ctx)
			yield(value, err)

			return
		}

		// subscribe first, so Changes committed while the first read runs trigger a re-execution
		subscription, err := s.observe(ctx, filter)
		if err != nil {
			yield(empty, wrapOperationError(op, err))
			return
		}
		defer subscription.Cancel()

		for {
			value, err := execute(ctx)

			if ctx.Err() != nil {
				discard(value)
				return
			}

			if err != nil {
				s.observer.logError(ctx, logMsgLiveQueryFailed, err, logAttrOperation, string(op.Kind()))
				yield(empty, err)

				return
			}

			if !yield(value, nil) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case changes, ok := <-subscription.C():
				if !ok {
					return
				}

				s.observer.logDebug(ctx, logMsgLiveQueryReexecuting, logAttrChanges, changes.String())
				s.observer.incrementCounter(ctx, MetricLiveQueryReexecution, nil)
			}
		}
	}
}

// discard releases values which will never reach the consumer, e.g. cursors of a cancelled sequence.
func discard(value any) {
	if closer, ok := value.(io.Closer); ok && closer != nil {
		_ = closer.Close()
	}
}
