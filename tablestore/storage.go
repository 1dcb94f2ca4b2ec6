package tablestore

import (
	"context"
	"reflect"
)

// Cursor iterates the rows of a read. The caller must Close it.
type Cursor interface {
	Next() bool
	Row() (Row, error)
	Scan(dest ...any) error
	Columns() ([]ColumnString, error)
	Err() error
	Close() error
}

// Storage is the contract of the concrete storage engine.
//
// Transactions are carried in the context: BeginTransaction returns a context that must be passed to all
// calls belonging to the transaction and finally to EndTransaction. A BeginTransaction on a context
// which already carries a transaction starts a nested one. EndTransaction commits when
// SetTransactionSuccessful was called before, otherwise it rolls back; it must run on every exit path.
type Storage interface {
	BeginTransaction(ctx context.Context) (context.Context, error)
	SetTransactionSuccessful(ctx context.Context) error
	EndTransaction(ctx context.Context) error

	ExecuteSQL(ctx context.Context, rawQuery RawQuery) error
	RawQuery(ctx context.Context, rawQuery RawQuery) (Cursor, error)
	Query(ctx context.Context, query Query) (Cursor, error)

	// Insert returns the id of the inserted row.
	Insert(ctx context.Context, insertQuery InsertQuery, row Row) (int64, error)

	// InsertWithOnConflict returns the id of the inserted row or NoRowID if the conflict was ignored.
	InsertWithOnConflict(ctx context.Context, insertQuery InsertQuery, row Row, algorithm ConflictAlgorithm) (int64, error)

	// Update returns the number of updated rows.
	Update(ctx context.Context, updateQuery UpdateQuery, row Row) (int64, error)

	// Delete returns the number of deleted rows.
	Delete(ctx context.Context, deleteQuery DeleteQuery) (int64, error)

	Close() error
}

// LowLevel is what resolvers work with: the Storage plus change notification and type mappings.
type LowLevel struct {
	store *Store
}

// BeginTransaction starts a transaction, nested when ctx already carries one.
// Changes notified with the returned context, or a context derived from it, are held back until the
// outermost transaction has committed. A rolled back transaction drops its held back Changes.
func (ll *LowLevel) BeginTransaction(ctx context.Context) (context.Context, error) {
	txCtx, err := ll.store.storage.BeginTransaction(ctx)
	if err != nil {
		return ctx, err
	}

	return withTransactionScope(txCtx), nil
}

func (ll *LowLevel) SetTransactionSuccessful(ctx context.Context) error {
	if err := ll.store.storage.SetTransactionSuccessful(ctx); err != nil {
		return err
	}

	if scope := transactionScopeFrom(ctx); scope != nil {
		scope.markSuccessful()
	}

	return nil
}

func (ll *LowLevel) EndTransaction(ctx context.Context) error {
	err := ll.store.storage.EndTransaction(ctx)

	scope := transactionScopeFrom(ctx)
	if scope == nil {
		return err
	}

	committed := scope.release(err == nil)
	if committed.IsEmpty() {
		return err
	}

	if scope.parent != nil {
		scope.parent.collect(committed)
		return err
	}

	ll.store.notifyAboutChanges(ctx, committed)

	return err
}

// InTransaction reports whether ctx carries a transaction begun through BeginTransaction.
func (ll *LowLevel) InTransaction(ctx context.Context) bool {
	return transactionScopeFrom(ctx) != nil
}

func (ll *LowLevel) ExecuteSQL(ctx context.Context, rawQuery RawQuery) error {
	return ll.store.storage.ExecuteSQL(ctx, rawQuery)
}

func (ll *LowLevel) RawQuery(ctx context.Context, rawQuery RawQuery) (Cursor, error) {
	return ll.store.storage.RawQuery(ctx, rawQuery)
}

func (ll *LowLevel) Query(ctx context.Context, query Query) (Cursor, error) {
	return ll.store.storage.Query(ctx, query)
}

func (ll *LowLevel) Insert(ctx context.Context, insertQuery InsertQuery, row Row) (int64, error) {
	return ll.store.storage.Insert(ctx, insertQuery, row)
}

func (ll *LowLevel) InsertWithOnConflict(
	ctx context.Context,
	insertQuery InsertQuery,
	row Row,
	algorithm ConflictAlgorithm,
) (int64, error) {

	return ll.store.storage.InsertWithOnConflict(ctx, insertQuery, row, algorithm)
}

func (ll *LowLevel) Update(ctx context.Context, updateQuery UpdateQuery, row Row) (int64, error) {
	return ll.store.storage.Update(ctx, updateQuery, row)
}

func (ll *LowLevel) Delete(ctx context.Context, deleteQuery DeleteQuery) (int64, error) {
	return ll.store.storage.Delete(ctx, deleteQuery)
}

// NotifyAboutChanges publishes the Changes to all subscribers they are related to.
// Inside a transaction they are published once the outermost transaction has committed.
func (ll *LowLevel) NotifyAboutChanges(ctx context.Context, changes Changes) {
	if scope := transactionScopeFrom(ctx); scope != nil {
		scope.collect(changes)
		return
	}

	ll.store.notifyAboutChanges(ctx, changes)
}

// HasTypeMapping reports whether a type mapping is registered for the type.
func (ll *LowLevel) HasTypeMapping(t reflect.Type) bool {
	_, ok := ll.store.typeMappings.lookup(t)

	return ok
}

// Storage returns the underlying Storage.
func (ll *LowLevel) Storage() Storage {
	return ll.store.storage
}

// TypeMappingFor returns the TypeMapping registered for T.
func TypeMappingFor[T any](ll *LowLevel) (TypeMapping[T], bool) {
	return typeMappingFor[T](ll.store.typeMappings)
}
