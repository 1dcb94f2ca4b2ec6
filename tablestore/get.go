package tablestore

import (
	"context"
)

// getRequest holds either a Query or a RawQuery.
type getRequest struct {
	query    *Query
	rawQuery *RawQuery
}

func (r getRequest) validate() error {
	if r.query == nil && r.rawQuery == nil {
		return ErrInvalidRequest
	}

	return nil
}

func (r getRequest) data() any {
	if r.query != nil {
		return *r.query
	}

	if r.rawQuery != nil {
		return *r.rawQuery
	}

	return nil
}

func (r getRequest) observes() ([]TableNameString, []TagString) {
	if r.query != nil {
		return r.query.ObservesTables(), r.query.ObservesTags()
	}

	if r.rawQuery != nil {
		return r.rawQuery.ObservesTables(), r.rawQuery.ObservesTags()
	}

	return nil, nil
}

func (r getRequest) withQuery(query Query) getRequest {
	return getRequest{query: &query}
}

func (r getRequest) withRawQuery(rawQuery RawQuery) getRequest {
	return getRequest{rawQuery: &rawQuery}
}

// openCursor performs the read with the resolver.
func (r getRequest) openCursor(ctx context.Context, ll *LowLevel, resolver CursorResolver) (Cursor, error) {
	if r.query != nil {
		return resolver.PerformGet(ctx, ll, *r.query)
	}

	if r.rawQuery != nil {
		return resolver.PerformRawGet(ctx, ll, *r.rawQuery)
	}

	return nil, ErrInvalidRequest
}

// closeCursor closes the cursor and logs a failure as warning.
func (s *Store) closeCursor(ctx context.Context, cursor Cursor) {
	if err := cursor.Close(); err != nil {
		s.observer.logWarn(ctx, logMsgCloseCursorFailed, logAttrError, err.Error())
	}
}

/***** list of objects *****/

// GetListOfObjectsBuilder builds a read returning all rows mapped to T.
type GetListOfObjectsBuilder[T any] struct {
	store    *Store
	kind     OperationKind
	request  getRequest
	resolver GetResolver[T]
}

// GetListOfObjects starts a read of a list of T. Without an explicit resolver, the GetResolver of
// the TypeMapping registered for T is used.
func GetListOfObjects[T any](s *Store) GetListOfObjectsBuilder[T] {
	return GetListOfObjectsBuilder[T]{store: s, kind: OperationGetList}
}

func (b GetListOfObjectsBuilder[T]) WithQuery(query Query) GetListOfObjectsBuilder[T] {
	b.request = b.request.withQuery(query)

	return b
}

func (b GetListOfObjectsBuilder[T]) WithRawQuery(rawQuery RawQuery) GetListOfObjectsBuilder[T] {
	b.request = b.request.withRawQuery(rawQuery)

	return b
}

func (b GetListOfObjectsBuilder[T]) WithGetResolver(resolver GetResolver[T]) GetListOfObjectsBuilder[T] {
	b.resolver = resolver

	return b
}

// Prepare validates the builder, ErrInvalidRequest is returned if neither a Query nor a RawQuery was given.
func (b GetListOfObjectsBuilder[T]) Prepare() (PreparedGet[[]T], error) {
	if b.store == nil {
		return PreparedGet[[]T]{}, ErrNilStore
	}

	if err := b.request.validate(); err != nil {
		return PreparedGet[[]T]{}, err
	}

	return newPreparedGet(b.store, b.kind, b.request, b.bind), nil
}

func (b GetListOfObjectsBuilder[T]) bind() (func(ctx context.Context) ([]T, error), error) {
	resolver, err := resolveGetResolver(b.store.typeMappings, b.resolver)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) ([]T, error) {
		return b.perform(ctx, resolver)
	}, nil
}

func (b GetListOfObjectsBuilder[T]) perform(ctx context.Context, resolver GetResolver[T]) ([]T, error) {
	ll := b.store.lowLevel

	cursor, err := b.request.openCursor(ctx, ll, resolver)
	if err != nil {
		return nil, err
	}
	defer b.store.closeCursor(ctx, cursor)

	list := make([]T, 0)
	for cursor.Next() {
		item, mapErr := resolver.MapFromCursor(ctx, ll, cursor)
		if mapErr != nil {
			return nil, mapErr
		}

		list = append(list, item)
	}

	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

/***** single object *****/

// GetObjectBuilder builds a read returning the first row mapped to T, or nil if there is none.
type GetObjectBuilder[T any] struct {
	store    *Store
	request  getRequest
	resolver GetResolver[T]
}

// GetObject starts a read of a single T.
func GetObject[T any](s *Store) GetObjectBuilder[T] {
	return GetObjectBuilder[T]{store: s}
}

func (b GetObjectBuilder[T]) WithQuery(query Query) GetObjectBuilder[T] {
	b.request = b.request.withQuery(query)

	return b
}

func (b GetObjectBuilder[T]) WithRawQuery(rawQuery RawQuery) GetObjectBuilder[T] {
	b.request = b.request.withRawQuery(rawQuery)

	return b
}

func (b GetObjectBuilder[T]) WithGetResolver(resolver GetResolver[T]) GetObjectBuilder[T] {
	b.resolver = resolver

	return b
}

// Prepare validates the builder, ErrInvalidRequest is returned if neither a Query nor a RawQuery was given.
func (b GetObjectBuilder[T]) Prepare() (PreparedGet[*T], error) {
	if b.store == nil {
		return PreparedGet[*T]{}, ErrNilStore
	}

	if err := b.request.validate(); err != nil {
		return PreparedGet[*T]{}, err
	}

	return newPreparedGet(b.store, OperationGetObject, b.request, b.bind), nil
}

func (b GetObjectBuilder[T]) bind() (func(ctx context.Context) (*T, error), error) {
	resolver, err := resolveGetResolver(b.store.typeMappings, b.resolver)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (*T, error) {
		return b.perform(ctx, resolver)
	}, nil
}

func (b GetObjectBuilder[T]) perform(ctx context.Context, resolver GetResolver[T]) (*T, error) {
	ll := b.store.lowLevel

	cursor, err := b.request.openCursor(ctx, ll, resolver)
	if err != nil {
		return nil, err
	}
	defer b.store.closeCursor(ctx, cursor)

	if !cursor.Next() {
		return nil, cursor.Err()
	}

	item, err := resolver.MapFromCursor(ctx, ll, cursor)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

/***** rows, cursor, number of results *****/

// GetBuilder starts the reads that do not need a type mapping.
type GetBuilder struct {
	store *Store
}

// Get starts a read of rows, a cursor or the number of results.
func (s *Store) Get() GetBuilder {
	return GetBuilder{store: s}
}

// Rows reads all rows materialised as Row values. The cursor is always closed.
func (g GetBuilder) Rows() GetListOfObjectsBuilder[Row] {
	return GetListOfObjects[Row](g.store).WithGetResolver(RowGetResolver())
}

// Cursor reads into a Cursor, which the caller must close.
func (g GetBuilder) Cursor() GetCursorBuilder {
	return GetCursorBuilder{store: g.store, resolver: DefaultCursorResolver{}}
}

// NumberOfResults counts the rows of the read.
func (g GetBuilder) NumberOfResults() GetNumberOfResultsBuilder {
	return GetNumberOfResultsBuilder{store: g.store, resolver: NumberOfResultsResolver{}}
}

// GetCursorBuilder builds a read returning the open Cursor.
type GetCursorBuilder struct {
	store    *Store
	request  getRequest
	resolver CursorResolver
}

func (b GetCursorBuilder) WithQuery(query Query) GetCursorBuilder {
	b.request = b.request.withQuery(query)

	return b
}

func (b GetCursorBuilder) WithRawQuery(rawQuery RawQuery) GetCursorBuilder {
	b.request = b.request.withRawQuery(rawQuery)

	return b
}

func (b GetCursorBuilder) WithCursorResolver(resolver CursorResolver) GetCursorBuilder {
	b.resolver = resolver

	return b
}

// Prepare validates the builder. The live sequence of the prepared read yields a fresh Cursor per
// emission, each of which the consumer must close.
func (b GetCursorBuilder) Prepare() (PreparedGet[Cursor], error) {
	if b.store == nil {
		return PreparedGet[Cursor]{}, ErrNilStore
	}

	if err := b.request.validate(); err != nil {
		return PreparedGet[Cursor]{}, err
	}

	if b.resolver == nil {
		return PreparedGet[Cursor]{}, ErrNilResolver
	}

	return newPreparedGet(b.store, OperationGetCursor, b.request, bindDirect(b.perform)), nil
}

func (b GetCursorBuilder) perform(ctx context.Context) (Cursor, error) {
	return b.request.openCursor(ctx, b.store.lowLevel, b.resolver)
}

// GetNumberOfResultsBuilder builds a read returning the number of rows.
type GetNumberOfResultsBuilder struct {
	store    *Store
	request  getRequest
	resolver GetResolver[int]
}

func (b GetNumberOfResultsBuilder) WithQuery(query Query) GetNumberOfResultsBuilder {
	b.request = b.request.withQuery(query)

	return b
}

func (b GetNumberOfResultsBuilder) WithRawQuery(rawQuery RawQuery) GetNumberOfResultsBuilder {
	b.request = b.request.withRawQuery(rawQuery)

	return b
}

// WithGetResolver replaces the counting resolver; its MapFromCursor is called once with the whole cursor.
func (b GetNumberOfResultsBuilder) WithGetResolver(resolver GetResolver[int]) GetNumberOfResultsBuilder {
	b.resolver = resolver

	return b
}

func (b GetNumberOfResultsBuilder) Prepare() (PreparedGet[int], error) {
	if b.store == nil {
		return PreparedGet[int]{}, ErrNilStore
	}

	if err := b.request.validate(); err != nil {
		return PreparedGet[int]{}, err
	}

	if b.resolver == nil {
		return PreparedGet[int]{}, ErrNilResolver
	}

	return newPreparedGet(b.store, OperationGetCount, b.request, bindDirect(b.perform)), nil
}

func (b GetNumberOfResultsBuilder) perform(ctx context.Context) (int, error) {
	ll := b.store.lowLevel

	cursor, err := b.request.openCursor(ctx, ll, b.resolver)
	if err != nil {
		return 0, err
	}
	defer b.store.closeCursor(ctx, cursor)

	return b.resolver.MapFromCursor(ctx, ll, cursor)
}
