package tablestore

import (
	"context"
	"errors"
)

// ExecuteSQLBuilder builds the execution of a RawQuery that returns no rows.
type ExecuteSQLBuilder struct {
	store    *Store
	rawQuery *RawQuery
}

// ExecuteSQL starts the execution of a literal statement, e.g. DDL or a bulk update.
func (s *Store) ExecuteSQL() ExecuteSQLBuilder {
	return ExecuteSQLBuilder{store: s}
}

func (b ExecuteSQLBuilder) WithQuery(rawQuery RawQuery) ExecuteSQLBuilder {
	b.rawQuery = &rawQuery

	return b
}

// Prepare returns ErrInvalidRequest if no RawQuery was given.
func (b ExecuteSQLBuilder) Prepare() (PreparedOperation[SQLResult], error) {
	if b.store == nil {
		return PreparedOperation[SQLResult]{}, ErrNilStore
	}

	if b.rawQuery == nil {
		return PreparedOperation[SQLResult]{}, ErrInvalidRequest
	}

	rawQuery := *b.rawQuery

	return PreparedOperation[SQLResult]{
		store: b.store,
		op:    Operation{kind: OperationExecuteSQL, data: rawQuery},
		bind: bindDirect(func(ctx context.Context) (SQLResult, error) {
			return executeSQL(ctx, b.store, rawQuery)
		}),
	}, nil
}

// executeSQL runs the statement and publishes the declared affected tables and tags, if any.
func executeSQL(ctx context.Context, s *Store, rawQuery RawQuery) (SQLResult, error) {
	if err := s.lowLevel.ExecuteSQL(ctx, rawQuery); err != nil {
		return SQLResult{}, err
	}

	changes, err := NewChanges(rawQuery.AffectsTables(), rawQuery.AffectsTags())
	if errors.Is(err, ErrEmptyChanges) {
		return SQLResult{}, nil
	}

	s.lowLevel.NotifyAboutChanges(ctx, changes)

	return SQLResult{changes: changes, hasChanges: true}, nil
}
