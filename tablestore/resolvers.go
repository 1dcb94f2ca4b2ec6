package tablestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CursorResolver performs the read of a get operation.
type CursorResolver interface {
	PerformGet(ctx context.Context, ll *LowLevel, query Query) (Cursor, error)
	PerformRawGet(ctx context.Context, ll *LowLevel, rawQuery RawQuery) (Cursor, error)
}

// GetResolver performs the read of a get operation and maps the cursor's current row to T.
type GetResolver[T any] interface {
	CursorResolver
	MapFromCursor(ctx context.Context, ll *LowLevel, cursor Cursor) (T, error)
}

// PutResolver writes one item.
type PutResolver[T any] interface {
	PerformPut(ctx context.Context, ll *LowLevel, item T) (PutResult, error)
}

// DeleteResolver deletes one item.
type DeleteResolver[T any] interface {
	PerformDelete(ctx context.Context, ll *LowLevel, item T) (DeleteResult, error)
}

/***** get *****/

// DefaultCursorResolver passes queries straight to the storage.
type DefaultCursorResolver struct{}

func (DefaultCursorResolver) PerformGet(ctx context.Context, ll *LowLevel, query Query) (Cursor, error) {
	return ll.Query(ctx, query)
}

func (DefaultCursorResolver) PerformRawGet(ctx context.Context, ll *LowLevel, rawQuery RawQuery) (Cursor, error) {
	return ll.RawQuery(ctx, rawQuery)
}

// DefaultGetResolver reads from the storage and maps each row with MapFromRow.
type DefaultGetResolver[T any] struct {
	DefaultCursorResolver
	MapFromRow func(row Row) (T, error)
}

func (r DefaultGetResolver[T]) MapFromCursor(_ context.Context, _ *LowLevel, cursor Cursor) (T, error) {
	var empty T

	if r.MapFromRow == nil {
		return empty, ErrNilMapper
	}

	row, err := cursor.Row()
	if err != nil {
		return empty, err
	}

	return r.MapFromRow(row)
}

// RowGetResolver materialises rows as they are.
func RowGetResolver() GetResolver[Row] {
	return DefaultGetResolver[Row]{
		MapFromRow: func(row Row) (Row, error) {
			return row, nil
		},
	}
}

// NumberOfResultsResolver counts the rows of the cursor.
// MapFromCursor is called once with a fresh cursor and consumes it.
type NumberOfResultsResolver struct {
	DefaultCursorResolver
}

func (NumberOfResultsResolver) MapFromCursor(_ context.Context, _ *LowLevel, cursor Cursor) (int, error) {
	count := 0
	for cursor.Next() {
		count++
	}

	return count, cursor.Err()
}

/***** put *****/

// DefaultPutResolver writes an item by updating it first and inserting it when no row was updated,
// both inside one (possibly nested) transaction.
type DefaultPutResolver[T any] struct {
	MapToInsertQuery func(item T) (InsertQuery, error)
	MapToUpdateQuery func(item T) (UpdateQuery, error)
	MapToRow         func(item T) (Row, error)
}

func (r DefaultPutResolver[T]) PerformPut(ctx context.Context, ll *LowLevel, item T) (PutResult, error) {
	if r.MapToInsertQuery == nil || r.MapToUpdateQuery == nil || r.MapToRow == nil {
		return PutResult{}, ErrNilMapper
	}

	updateQuery, err := r.MapToUpdateQuery(item)
	if err != nil {
		return PutResult{}, err
	}

	row, err := r.MapToRow(item)
	if err != nil {
		return PutResult{}, err
	}

	txCtx, err := ll.BeginTransaction(ctx)
	if err != nil {
		return PutResult{}, err
	}

	result, err := func() (result PutResult, err error) {
		defer func() {
			if endErr := ll.EndTransaction(txCtx); endErr != nil {
				err = errors.Join(err, endErr)
			}
		}()

		rowsUpdated, err := ll.Update(txCtx, updateQuery, row)
		if err != nil {
			return PutResult{}, err
		}

		if rowsUpdated > 0 {
			result = NewUpdateResult(rowsUpdated, updateQuery.Table(), updateQuery.AffectsTags()...)
		} else {
			insertQuery, mapErr := r.MapToInsertQuery(item)
			if mapErr != nil {
				return PutResult{}, mapErr
			}

			insertedID, insertErr := ll.Insert(txCtx, insertQuery, row)
			if insertErr != nil {
				return PutResult{}, insertErr
			}

			result = NewInsertResult(insertedID, insertQuery.Table(), insertQuery.AffectsTags()...)
		}

		return result, ll.SetTransactionSuccessful(txCtx)
	}()

	if err != nil {
		return PutResult{}, err
	}

	return result, nil
}

// RowPutResolver puts Rows into a table identified by its key columns: rows matching the key values
// of the row are updated, otherwise the row is inserted.
type RowPutResolver struct {
	Table           TableNameString
	KeyColumns      []ColumnString
	ReturningColumn ColumnString
	AffectsTags     []TagString
}

func (r RowPutResolver) PerformPut(ctx context.Context, ll *LowLevel, row Row) (PutResult, error) {
	return DefaultPutResolver[Row]{
		MapToInsertQuery: r.insertQuery,
		MapToUpdateQuery: r.updateQuery,
		MapToRow: func(row Row) (Row, error) {
			return row, nil
		},
	}.PerformPut(ctx, ll, row)
}

func (r RowPutResolver) insertQuery(Row) (InsertQuery, error) {
	builder := BuildInsertQuery(r.Table).Returning(r.ReturningColumn)
	if len(r.AffectsTags) > 0 {
		builder = builder.AffectsTags(r.AffectsTags[0], r.AffectsTags[1:]...)
	}

	return builder.Finalize()
}

func (r RowPutResolver) updateQuery(row Row) (UpdateQuery, error) {
	if len(r.KeyColumns) == 0 {
		return UpdateQuery{}, ErrMissingKeyColumns
	}

	conditions := make([]string, 0, len(r.KeyColumns))
	args := make([]any, 0, len(r.KeyColumns))

	for _, column := range r.KeyColumns {
		value, ok := row[column]
		if !ok {
			return UpdateQuery{}, fmt.Errorf("%w: %s", ErrMissingKeyColumns, column)
		}

		conditions = append(conditions, column+" = ?")
		args = append(args, value)
	}

	builder := BuildUpdateQuery(r.Table).Where(strings.Join(conditions, " AND "), args...)
	if len(r.AffectsTags) > 0 {
		builder = builder.AffectsTags(r.AffectsTags[0], r.AffectsTags[1:]...)
	}

	return builder.Finalize()
}

/***** delete *****/

// DefaultDeleteResolver deletes an item with the DeleteQuery built by MapToDeleteQuery.
type DefaultDeleteResolver[T any] struct {
	MapToDeleteQuery func(item T) (DeleteQuery, error)
}

func (r DefaultDeleteResolver[T]) PerformDelete(ctx context.Context, ll *LowLevel, item T) (DeleteResult, error) {
	if r.MapToDeleteQuery == nil {
		return DeleteResult{}, ErrNilMapper
	}

	deleteQuery, err := r.MapToDeleteQuery(item)
	if err != nil {
		return DeleteResult{}, err
	}

	return DeleteQueryResolver{}.PerformDelete(ctx, ll, deleteQuery)
}

// DeleteQueryResolver runs the DeleteQuery as it is.
type DeleteQueryResolver struct{}

func (DeleteQueryResolver) PerformDelete(ctx context.Context, ll *LowLevel, deleteQuery DeleteQuery) (DeleteResult, error) {
	rowsDeleted, err := ll.Delete(ctx, deleteQuery)
	if err != nil {
		return DeleteResult{}, err
	}

	return NewDeleteResult(rowsDeleted, []TableNameString{deleteQuery.Table()}, deleteQuery.AffectsTags()), nil
}
