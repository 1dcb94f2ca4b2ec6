package tablestore

import (
	"fmt"
	"slices"
	"strings"
)

// ConflictAlgorithm decides what an insert does when it violates a uniqueness constraint.
type ConflictAlgorithm int

const (
	ConflictNone ConflictAlgorithm = iota
	ConflictIgnore
	ConflictReplace
	ConflictAbort
)

func (c ConflictAlgorithm) String() string {
	switch c {
	case ConflictNone:
		return "none"
	case ConflictIgnore:
		return "ignore"
	case ConflictReplace:
		return "replace"
	case ConflictAbort:
		return "abort"
	default:
		return "unknown"
	}
}

/***** InsertQuery *****/

// InsertQuery describes an insert into one table.
type InsertQuery struct {
	table           TableNameString
	nullColumnHack  ColumnString
	returningColumn ColumnString
	conflictColumns []ColumnString
	affectsTags     []TagString
}

func (q InsertQuery) Table() TableNameString {
	return q.table
}

// NullColumnHack names a column that is written as NULL when the row is empty.
func (q InsertQuery) NullColumnHack() ColumnString {
	return q.nullColumnHack
}

// ReturningColumn names the column whose value is reported as the inserted id by dialects
// that have no last-insert-id (PostgreSQL).
func (q InsertQuery) ReturningColumn() ColumnString {
	return q.returningColumn
}

// ConflictColumns is the conflict target used by ConflictReplace and ConflictIgnore.
func (q InsertQuery) ConflictColumns() []ColumnString {
	return q.conflictColumns
}

func (q InsertQuery) AffectsTags() []TagString {
	return q.affectsTags
}

func (q InsertQuery) String() string {
	return fmt.Sprintf(
		"InsertQuery{table=%s, nullColumnHack=%s, returningColumn=%s, conflictColumns=%v, affectsTags=%v}",
		q.table,
		q.nullColumnHack,
		q.returningColumn,
		q.conflictColumns,
		q.affectsTags,
	)
}

// InsertQueryBuilder builds an InsertQuery.
type InsertQueryBuilder struct {
	query InsertQuery
}

// BuildInsertQuery starts an InsertQueryBuilder for the table.
func BuildInsertQuery(table TableNameString) InsertQueryBuilder {
	return InsertQueryBuilder{query: InsertQuery{table: strings.TrimSpace(table)}}
}

func (b InsertQueryBuilder) NullColumnHack(column ColumnString) InsertQueryBuilder {
	b.query.nullColumnHack = column

	return b
}

func (b InsertQueryBuilder) Returning(column ColumnString) InsertQueryBuilder {
	b.query.returningColumn = column

	return b
}

func (b InsertQueryBuilder) OnConflict(column ColumnString, columns ...ColumnString) InsertQueryBuilder {
	b.query.conflictColumns = appendNonEmpty(nil, column, columns...)

	return b
}

func (b InsertQueryBuilder) AffectsTags(tag TagString, tags ...TagString) InsertQueryBuilder {
	b.query.affectsTags = sanitizeStrings(append(slices.Clone(b.query.affectsTags), tag), tags...)

	return b
}

// Finalize returns the InsertQuery or ErrEmptyTableName.
func (b InsertQueryBuilder) Finalize() (InsertQuery, error) {
	if b.query.table == "" {
		return InsertQuery{}, ErrEmptyTableName
	}

	return b.query, nil
}

/***** UpdateQuery *****/

// UpdateQuery describes an update of the rows of one table matching a literal condition.
type UpdateQuery struct {
	table       TableNameString
	where       string
	whereArgs   []any
	affectsTags []TagString
}

func (q UpdateQuery) Table() TableNameString {
	return q.table
}

func (q UpdateQuery) Where() string {
	return q.where
}

func (q UpdateQuery) WhereArgs() []any {
	return q.whereArgs
}

func (q UpdateQuery) AffectsTags() []TagString {
	return q.affectsTags
}

func (q UpdateQuery) String() string {
	return fmt.Sprintf(
		"UpdateQuery{table=%s, where=%q, args=%v, affectsTags=%v}",
		q.table,
		q.where,
		q.whereArgs,
		q.affectsTags,
	)
}

// UpdateQueryBuilder builds an UpdateQuery.
type UpdateQueryBuilder struct {
	query UpdateQuery
}

// BuildUpdateQuery starts an UpdateQueryBuilder for the table.
func BuildUpdateQuery(table TableNameString) UpdateQueryBuilder {
	return UpdateQueryBuilder{query: UpdateQuery{table: strings.TrimSpace(table)}}
}

func (b UpdateQueryBuilder) Where(clause string, args ...any) UpdateQueryBuilder {
	b.query.where = clause
	b.query.whereArgs = slices.Clone(args)

	return b
}

func (b UpdateQueryBuilder) AffectsTags(tag TagString, tags ...TagString) UpdateQueryBuilder {
	b.query.affectsTags = sanitizeStrings(append(slices.Clone(b.query.affectsTags), tag), tags...)

	return b
}

// Finalize returns the UpdateQuery or ErrEmptyTableName.
func (b UpdateQueryBuilder) Finalize() (UpdateQuery, error) {
	if b.query.table == "" {
		return UpdateQuery{}, ErrEmptyTableName
	}

	return b.query, nil
}

/***** DeleteQuery *****/

// DeleteQuery describes a delete of the rows of one table matching a literal condition.
// An empty condition deletes all rows.
type DeleteQuery struct {
	table       TableNameString
	where       string
	whereArgs   []any
	affectsTags []TagString
}

func (q DeleteQuery) Table() TableNameString {
	return q.table
}

func (q DeleteQuery) Where() string {
	return q.where
}

func (q DeleteQuery) WhereArgs() []any {
	return q.whereArgs
}

func (q DeleteQuery) AffectsTags() []TagString {
	return q.affectsTags
}

func (q DeleteQuery) String() string {
	return fmt.Sprintf(
		"DeleteQuery{table=%s, where=%q, args=%v, affectsTags=%v}",
		q.table,
		q.where,
		q.whereArgs,
		q.affectsTags,
	)
}

// DeleteQueryBuilder builds a DeleteQuery.
type DeleteQueryBuilder struct {
	query DeleteQuery
}

// BuildDeleteQuery starts a DeleteQueryBuilder for the table.
func BuildDeleteQuery(table TableNameString) DeleteQueryBuilder {
	return DeleteQueryBuilder{query: DeleteQuery{table: strings.TrimSpace(table)}}
}

func (b DeleteQueryBuilder) Where(clause string, args ...any) DeleteQueryBuilder {
	b.query.where = clause
	b.query.whereArgs = slices.Clone(args)

	return b
}

func (b DeleteQueryBuilder) AffectsTags(tag TagString, tags ...TagString) DeleteQueryBuilder {
	b.query.affectsTags = sanitizeStrings(append(slices.Clone(b.query.affectsTags), tag), tags...)

	return b
}

// Finalize returns the DeleteQuery or ErrEmptyTableName.
func (b DeleteQueryBuilder) Finalize() (DeleteQuery, error) {
	if b.query.table == "" {
		return DeleteQuery{}, ErrEmptyTableName
	}

	return b.query, nil
}
