package tablestore

import (
	"context"
	"slices"
)

/***** single object *****/

// PutObjectBuilder builds the put of one object.
type PutObjectBuilder[T any] struct {
	store    *Store
	object   T
	resolver PutResolver[T]
}

// PutObject starts the put of one object. Without an explicit resolver, the PutResolver of the TypeMapping
// registered for the runtime type of the object is used.
func PutObject[T any](s *Store, object T) PutObjectBuilder[T] {
	return PutObjectBuilder[T]{store: s, object: object}
}

func (b PutObjectBuilder[T]) WithPutResolver(resolver PutResolver[T]) PutObjectBuilder[T] {
	b.resolver = resolver

	return b
}

func (b PutObjectBuilder[T]) Prepare() (PreparedOperation[PutResult], error) {
	if b.store == nil {
		return PreparedOperation[PutResult]{}, ErrNilStore
	}

	return PreparedOperation[PutResult]{
		store: b.store,
		op:    Operation{kind: OperationPutObject, data: b.object},
		bind:  bindPutSingle(b.store, b.object, b.resolver),
	}, nil
}

// bindPutSingle resolves the resolver of the item.
func bindPutSingle[T any](s *Store, item T, explicit PutResolver[T]) binder[PutResult] {
	return func() (func(ctx context.Context) (PutResult, error), error) {
		perform, err := resolvePut(s.typeMappings, item, explicit)
		if err != nil {
			return nil, err
		}

		return func(ctx context.Context) (PutResult, error) {
			return putSingle(ctx, s, item, perform)
		}, nil
	}
}

// putSingle performs the put and publishes its Changes if it had an effect.
func putSingle[T any](ctx context.Context, s *Store, item T, perform putFunc[T]) (PutResult, error) {
	result, err := perform(ctx, s.lowLevel, item)
	if err != nil {
		return PutResult{}, err
	}

	if changes, ok := result.Changes(); ok {
		s.lowLevel.NotifyAboutChanges(ctx, changes)
	}

	return result, nil
}

/***** collection of objects *****/

// PutObjectsBuilder builds the put of a collection of objects.
type PutObjectsBuilder[T any] struct {
	store          *Store
	kind           OperationKind
	objects        []T
	resolver       PutResolver[T]
	useTransaction bool
}

// PutObjects starts the put of a collection of objects, by default inside one transaction.
// Without an explicit resolver, every object is put with the PutResolver registered for its runtime type;
// if any object lacks one, the whole collection is rejected before anything is written.
func PutObjects[T any](s *Store, objects []T) PutObjectsBuilder[T] {
	return PutObjectsBuilder[T]{
		store:          s,
		kind:           OperationPutObjects,
		objects:        slices.Clone(objects),
		useTransaction: true,
	}
}

func (b PutObjectsBuilder[T]) WithPutResolver(resolver PutResolver[T]) PutObjectsBuilder[T] {
	b.resolver = resolver

	return b
}

// UseTransaction decides whether all objects are put inside one transaction (the default).
func (b PutObjectsBuilder[T]) UseTransaction(useTransaction bool) PutObjectsBuilder[T] {
	b.useTransaction = useTransaction

	return b
}

func (b PutObjectsBuilder[T]) Prepare() (PreparedOperation[PutResults[T]], error) {
	if b.store == nil {
		return PreparedOperation[PutResults[T]]{}, ErrNilStore
	}

	return PreparedOperation[PutResults[T]]{
		store: b.store,
		op:    Operation{kind: b.kind, data: b.objects},
		bind:  b.bind,
	}, nil
}

func (b PutObjectsBuilder[T]) bind() (func(ctx context.Context) (PutResults[T], error), error) {
	performers, err := resolveBatch(b.objects, func(item T) (batchPerformer[T, PutResult], error) {
		perform, err := resolvePut(b.store.typeMappings, item, b.resolver)
		if err != nil {
			return nil, err
		}

		return batchPerformer[T, PutResult](perform), nil
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (PutResults[T], error) {
		results, err := executeBatch(ctx, b.store, b.kind, b.objects, b.useTransaction, performers)
		if err != nil {
			return PutResults[T]{}, err
		}

		return PutResults[T]{results: results}, nil
	}, nil
}

/***** rows *****/

// PutBuilder starts the put of rows, which always needs an explicit resolver.
type PutBuilder struct {
	store *Store
}

// Put starts the put of one Row or a collection of Rows.
func (s *Store) Put() PutBuilder {
	return PutBuilder{store: s}
}

// Row starts the put of one Row.
func (p PutBuilder) Row(row Row) PutRowBuilder {
	return PutRowBuilder{store: p.store, row: row.Copy()}
}

// Rows starts the put of a collection of Rows, by default inside one transaction.
func (p PutBuilder) Rows(rows []Row) PutRowsBuilder {
	builder := PutObjects(p.store, rows)
	builder.kind = OperationPutRows

	return PutRowsBuilder{builder: builder}
}

// PutRowBuilder builds the put of one Row.
type PutRowBuilder struct {
	store    *Store
	row      Row
	resolver PutResolver[Row]
}

func (b PutRowBuilder) WithPutResolver(resolver PutResolver[Row]) PutRowBuilder {
	b.resolver = resolver

	return b
}

// Prepare returns ErrNilResolver if no resolver was given.
func (b PutRowBuilder) Prepare() (PreparedOperation[PutResult], error) {
	if b.store == nil {
		return PreparedOperation[PutResult]{}, ErrNilStore
	}

	if b.resolver == nil {
		return PreparedOperation[PutResult]{}, ErrNilResolver
	}

	return PreparedOperation[PutResult]{
		store: b.store,
		op:    Operation{kind: OperationPutRow, data: b.row},
		bind:  bindPutSingle(b.store, b.row, b.resolver),
	}, nil
}

// PutRowsBuilder builds the put of a collection of Rows.
type PutRowsBuilder struct {
	builder PutObjectsBuilder[Row]
}

func (b PutRowsBuilder) WithPutResolver(resolver PutResolver[Row]) PutRowsBuilder {
	b.builder = b.builder.WithPutResolver(resolver)

	return b
}

// UseTransaction decides whether all rows are put inside one transaction (the default).
func (b PutRowsBuilder) UseTransaction(useTransaction bool) PutRowsBuilder {
	b.builder = b.builder.UseTransaction(useTransaction)

	return b
}

// Prepare returns ErrNilResolver if no resolver was given.
func (b PutRowsBuilder) Prepare() (PreparedOperation[PutResults[Row]], error) {
	if b.builder.resolver == nil {
		return PreparedOperation[PutResults[Row]]{}, ErrNilResolver
	}

	return b.builder.Prepare()
}
