package sqlengine

import (
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
)

// Dialect names the SQL dialect statements are built for.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

const (
	goquDialectPostgres = "postgres"
	goquDialectSQLite   = "tablestore_sqlite3"
	excludedTable       = "excluded"
)

func init() {
	// goqu renders any conflict clause as INSERT OR IGNORE for SQLite, which would silently turn
	// DO UPDATE upserts into ignores. The ON CONFLICT clause alone is valid SQLite.
	options := sqlite3.DialectOptions()
	options.SupportsInsertIgnoreSyntax = false
	goqu.RegisterDialect(goquDialectSQLite, options)
}

func (d Dialect) String() string {
	return string(d)
}

func builderFor(dialect Dialect) (goqu.DialectWrapper, error) {
	switch dialect {
	case DialectPostgres:
		return goqu.Dialect(goquDialectPostgres), nil
	case DialectSQLite:
		return goqu.Dialect(goquDialectSQLite), nil
	default:
		return goqu.DialectWrapper{}, fmt.Errorf("%w: %q", tablestore.ErrUnsupportedDialect, dialect)
	}
}

func (s *Store) buildSelectQuery(query tablestore.Query) (sqlQueryString, []any, error) {
	selectStmt := s.builder.From(query.Table()).Prepared(true)

	if query.Distinct() {
		selectStmt = selectStmt.Distinct()
	}

	if columns := query.Columns(); len(columns) > 0 {
		selectStmt = selectStmt.Select(columnExpressions(columns)...)
	}

	if where := query.Where(); where != "" {
		selectStmt = selectStmt.Where(goqu.L(where, query.WhereArgs()...))
	}

	if groupBy := query.GroupBy(); len(groupBy) > 0 {
		selectStmt = selectStmt.GroupBy(columnExpressions(groupBy)...)
	}

	if having := query.Having(); having != "" {
		selectStmt = selectStmt.Having(goqu.L(having, query.HavingArgs()...))
	}

	for _, term := range query.OrderBy() {
		if term.Descending() {
			selectStmt = selectStmt.OrderAppend(goqu.I(term.Column()).Desc())
		} else {
			selectStmt = selectStmt.OrderAppend(goqu.I(term.Column()).Asc())
		}
	}

	if limit, offset, ok := query.Limit(); ok {
		selectStmt = selectStmt.Limit(limit)
		if offset > 0 {
			selectStmt = selectStmt.Offset(offset)
		}
	}

	return selectStmt.ToSQL()
}

func (s *Store) buildInsertQuery(
	insertQuery tablestore.InsertQuery,
	row tablestore.Row,
	algorithm tablestore.ConflictAlgorithm,
) (sqlQueryString, []any, error) {

	record := toRecord(row)
	if len(record) == 0 {
		if insertQuery.NullColumnHack() == "" {
			return "", nil, tablestore.ErrNoColumnsToWrite
		}

		record[insertQuery.NullColumnHack()] = nil
	}

	insertStmt := s.builder.Insert(insertQuery.Table()).Prepared(true).Rows(record)

	conflict, err := conflictExpression(insertQuery, record, algorithm)
	if err != nil {
		return "", nil, err
	}

	if conflict != nil {
		insertStmt = insertStmt.OnConflict(conflict)
	}

	if s.usesReturning(insertQuery) {
		insertStmt = insertStmt.Returning(goqu.C(insertQuery.ReturningColumn()))
	}

	return insertStmt.ToSQL()
}

// usesReturning reports whether the inserted id is read from a RETURNING clause, SQLite has last insert ids.
func (s *Store) usesReturning(insertQuery tablestore.InsertQuery) bool {
	return s.dialect == DialectPostgres && insertQuery.ReturningColumn() != ""
}

func conflictExpression(
	insertQuery tablestore.InsertQuery,
	record goqu.Record,
	algorithm tablestore.ConflictAlgorithm,
) (exp.ConflictExpression, error) {

	switch algorithm {
	case tablestore.ConflictNone, tablestore.ConflictAbort:
		return nil, nil

	case tablestore.ConflictIgnore:
		return goqu.DoNothing(), nil

	case tablestore.ConflictReplace:
		target := insertQuery.ConflictColumns()
		if len(target) == 0 {
			return nil, tablestore.ErrMissingConflictTarget
		}

		update := goqu.Record{}
		for column := range record {
			if !containsColumn(target, column) {
				update[column] = goqu.I(excludedTable + "." + column)
			}
		}

		if len(update) == 0 {
			return goqu.DoNothing(), nil
		}

		return goqu.DoUpdate(strings.Join(target, ", "), update), nil

	default:
		return nil, fmt.Errorf("%w: %s", tablestore.ErrUnsupportedConflictAlgo, algorithm)
	}
}

func (s *Store) buildUpdateQuery(updateQuery tablestore.UpdateQuery, row tablestore.Row) (sqlQueryString, []any, error) {
	record := toRecord(row)
	if len(record) == 0 {
		return "", nil, tablestore.ErrNoColumnsToWrite
	}

	updateStmt := s.builder.Update(updateQuery.Table()).Prepared(true).Set(record)

	if where := updateQuery.Where(); where != "" {
		updateStmt = updateStmt.Where(goqu.L(where, updateQuery.WhereArgs()...))
	}

	return updateStmt.ToSQL()
}

func (s *Store) buildDeleteQuery(deleteQuery tablestore.DeleteQuery) (sqlQueryString, []any, error) {
	deleteStmt := s.builder.Delete(deleteQuery.Table()).Prepared(true)

	if where := deleteQuery.Where(); where != "" {
		deleteStmt = deleteStmt.Where(goqu.L(where, deleteQuery.WhereArgs()...))
	}

	return deleteStmt.ToSQL()
}

func toRecord(row tablestore.Row) goqu.Record {
	record := make(goqu.Record, len(row))
	for column, value := range row {
		record[column] = value
	}

	return record
}

// columnExpressions quotes plain column names and passes expressions like count(*) through literally.
func columnExpressions(columns []tablestore.ColumnString) []any {
	expressions := make([]any, 0, len(columns))
	for _, column := range columns {
		if strings.ContainsAny(column, "( *") {
			expressions = append(expressions, goqu.L(column))
			continue
		}

		expressions = append(expressions, goqu.I(column))
	}

	return expressions
}

func containsColumn(columns []tablestore.ColumnString, column string) bool {
	for _, c := range columns {
		if c == column {
			return true
		}
	}

	return false
}
