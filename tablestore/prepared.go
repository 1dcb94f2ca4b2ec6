package tablestore

import (
	"context"
	"iter"
)

// PreparedOperation is a validated operation ready to be executed any number of times.
type PreparedOperation[R any] struct {
	store *Store
	op    Operation
	bind  binder[R]
}

// binder resolves what the operation needs, e.g. the resolvers of its type mappings, and returns the
// call which the interceptor chain finally runs. It is called before the chain on every execution.
type binder[R any] func() (func(ctx context.Context) (R, error), error)

// bindDirect is the binder of operations which resolve nothing.
func bindDirect[R any](perform func(ctx context.Context) (R, error)) binder[R] {
	return func() (func(ctx context.Context) (R, error), error) {
		return perform, nil
	}
}

// Operation returns what interceptors will see of this operation.
func (p PreparedOperation[R]) Operation() Operation {
	return p.op
}

// ExecuteNow executes the operation through the interceptor chain and blocks until it is done.
// Every failure is returned as *StoreOperationError. Resolver resolution happens before the chain,
// so interceptors never see an operation that failed with ErrMissingTypeMapping.
func (p PreparedOperation[R]) ExecuteNow(ctx context.Context) (R, error) {
	return runThroughChain(ctx, p.store, p.op, p.bind)
}

// Async executes the operation on the store's bounded workers. The channel delivers exactly one
// result and is closed afterward.
func (p PreparedOperation[R]) Async(ctx context.Context) <-chan AsyncResult[R] {
	return runAsync(ctx, p.store, p.op, p.ExecuteNow)
}

// PreparedGet is a prepared read which can also be consumed as a live sequence.
type PreparedGet[R any] struct {
	PreparedOperation[R]
	observesTables []TableNameString
	observesTags   []TagString
}

// ObservesTables returns the tables whose Changes re-execute the live sequence.
func (p PreparedGet[R]) ObservesTables() []TableNameString {
	return p.observesTables
}

// ObservesTags returns the tags whose Changes re-execute the live sequence.
func (p PreparedGet[R]) ObservesTags() []TagString {
	return p.observesTags
}

// AsLiveSequence returns a cold, infinite sequence: the first value is the result of executing the read
// right away, every related Changes value re-executes it and yields the new result.
// Breaking out of the loop or cancelling ctx ends the sequence and detaches from the change bus.
// An execution error is yielded once and ends the sequence.
// If the read observes neither tables nor tags, the sequence yields a single value.
//
//	for tweets, err := range prepared.AsLiveSequence(ctx) {
//		if err != nil {
//			return err
//		}
//		render(tweets)
//	}
func (p PreparedGet[R]) AsLiveSequence(ctx context.Context) iter.Seq2[R, error] {
	return liveSequence(ctx, p.store, p.op, MatchTablesOrTags(p.observesTables, p.observesTags), p.ExecuteNow)
}

func newPreparedGet[R any](
	s *Store,
	kind OperationKind,
	request getRequest,
	bind binder[R],
) PreparedGet[R] {

	tables, tags := request.observes()

	return PreparedGet[R]{
		PreparedOperation: PreparedOperation[R]{
			store: s,
			op:    Operation{kind: kind, data: request.data()},
			bind:  bind,
		},
		observesTables: tables,
		observesTags:   tags,
	}
}
