package tablestore

import (
	"context"
	"slices"
)

/***** by query *****/

// DeleteBuilder starts deletes that do not need a type mapping.
type DeleteBuilder struct {
	store *Store
}

// Delete starts a delete by DeleteQuery.
func (s *Store) Delete() DeleteBuilder {
	return DeleteBuilder{store: s}
}

// ByQuery starts the delete of all rows matching the DeleteQuery.
func (d DeleteBuilder) ByQuery(deleteQuery DeleteQuery) DeleteByQueryBuilder {
	return DeleteByQueryBuilder{store: d.store, deleteQuery: deleteQuery, resolver: DeleteQueryResolver{}}
}

// DeleteByQueryBuilder builds the delete by DeleteQuery.
type DeleteByQueryBuilder struct {
	store       *Store
	deleteQuery DeleteQuery
	resolver    DeleteResolver[DeleteQuery]
}

func (b DeleteByQueryBuilder) WithDeleteResolver(resolver DeleteResolver[DeleteQuery]) DeleteByQueryBuilder {
	b.resolver = resolver

	return b
}

// Prepare returns ErrEmptyTableName for a zero DeleteQuery.
func (b DeleteByQueryBuilder) Prepare() (PreparedOperation[DeleteResult], error) {
	if b.store == nil {
		return PreparedOperation[DeleteResult]{}, ErrNilStore
	}

	if b.deleteQuery.Table() == "" {
		return PreparedOperation[DeleteResult]{}, ErrEmptyTableName
	}

	if b.resolver == nil {
		return PreparedOperation[DeleteResult]{}, ErrNilResolver
	}

	return PreparedOperation[DeleteResult]{
		store: b.store,
		op:    Operation{kind: OperationDeleteQuery, data: b.deleteQuery},
		bind:  bindDeleteSingle(b.store, b.deleteQuery, b.resolver),
	}, nil
}

/***** single object *****/

// DeleteObjectBuilder builds the delete of one object.
type DeleteObjectBuilder[T any] struct {
	store    *Store
	object   T
	resolver DeleteResolver[T]
}

// DeleteObject starts the delete of one object. Without an explicit resolver, the DeleteResolver of the
// TypeMapping registered for the runtime type of the object is used.
func DeleteObject[T any](s *Store, object T) DeleteObjectBuilder[T] {
	return DeleteObjectBuilder[T]{store: s, object: object}
}

func (b DeleteObjectBuilder[T]) WithDeleteResolver(resolver DeleteResolver[T]) DeleteObjectBuilder[T] {
	b.resolver = resolver

	return b
}

func (b DeleteObjectBuilder[T]) Prepare() (PreparedOperation[DeleteResult], error) {
	if b.store == nil {
		return PreparedOperation[DeleteResult]{}, ErrNilStore
	}

	return PreparedOperation[DeleteResult]{
		store: b.store,
		op:    Operation{kind: OperationDeleteObject, data: b.object},
		bind:  bindDeleteSingle(b.store, b.object, b.resolver),
	}, nil
}

// bindDeleteSingle resolves the resolver of the item.
func bindDeleteSingle[T any](s *Store, item T, explicit DeleteResolver[T]) binder[DeleteResult] {
	return func() (func(ctx context.Context) (DeleteResult, error), error) {
		perform, err := resolveDelete(s.typeMappings, item, explicit)
		if err != nil {
			return nil, err
		}

		return func(ctx context.Context) (DeleteResult, error) {
			return deleteSingle(ctx, s, item, perform)
		}, nil
	}
}

// deleteSingle performs the delete and publishes its Changes if rows were deleted.
func deleteSingle[T any](ctx context.Context, s *Store, item T, perform deleteFunc[T]) (DeleteResult, error) {
	result, err := perform(ctx, s.lowLevel, item)
	if err != nil {
		return DeleteResult{}, err
	}

	if changes, ok := result.Changes(); ok {
		s.lowLevel.NotifyAboutChanges(ctx, changes)
	}

	return result, nil
}

/***** collection of objects *****/

// DeleteObjectsBuilder builds the delete of a collection of objects.
type DeleteObjectsBuilder[T any] struct {
	store          *Store
	objects        []T
	resolver       DeleteResolver[T]
	useTransaction bool
}

// DeleteObjects starts the delete of a collection of objects, by default inside one transaction.
// Without an explicit resolver, every object is deleted with the DeleteResolver registered for its runtime
// type; if any object lacks one, the whole collection is rejected before anything is deleted.
func DeleteObjects[T any](s *Store, objects []T) DeleteObjectsBuilder[T] {
	return DeleteObjectsBuilder[T]{store: s, objects: slices.Clone(objects), useTransaction: true}
}

func (b DeleteObjectsBuilder[T]) WithDeleteResolver(resolver DeleteResolver[T]) DeleteObjectsBuilder[T] {
	b.resolver = resolver

	return b
}

// UseTransaction decides whether all objects are deleted inside one transaction (the default).
func (b DeleteObjectsBuilder[T]) UseTransaction(useTransaction bool) DeleteObjectsBuilder[T] {
	b.useTransaction = useTransaction

	return b
}

func (b DeleteObjectsBuilder[T]) Prepare() (PreparedOperation[DeleteResults[T]], error) {
	if b.store == nil {
		return PreparedOperation[DeleteResults[T]]{}, ErrNilStore
	}

	return PreparedOperation[DeleteResults[T]]{
		store: b.store,
		op:    Operation{kind: OperationDeleteObjects, data: b.objects},
		bind:  b.bind,
	}, nil
}

func (b DeleteObjectsBuilder[T]) bind() (func(ctx context.Context) (DeleteResults[T], error), error) {
	performers, err := resolveBatch(b.objects, func(item T) (batchPerformer[T, DeleteResult], error) {
		perform, err := resolveDelete(b.store.typeMappings, item, b.resolver)
		if err != nil {
			return nil, err
		}

		return batchPerformer[T, DeleteResult](perform), nil
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (DeleteResults[T], error) {
		results, err := executeBatch(ctx, b.store, OperationDeleteObjects, b.objects, b.useTransaction, performers)
		if err != nil {
			return DeleteResults[T]{}, err
		}

		return DeleteResults[T]{results: results}, nil
	}, nil
}
