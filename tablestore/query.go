package tablestore

import (
	"fmt"
	"slices"
	"strings"
)

type (
	TableNameString = string
	TagString       = string
	ColumnString    = string
)

/***** OrderTerm *****/

// OrderTerm is one ORDER BY entry of a Query.
type OrderTerm struct {
	column     ColumnString
	descending bool
}

// Asc orders by the column ascending.
func Asc(column ColumnString) OrderTerm {
	return OrderTerm{column: column}
}

// Desc orders by the column descending.
func Desc(column ColumnString) OrderTerm {
	return OrderTerm{column: column, descending: true}
}

func (o OrderTerm) Column() ColumnString {
	return o.column
}

func (o OrderTerm) Descending() bool {
	return o.descending
}

/***** Query *****/

// Query is an immutable description of a SELECT against one table.
// Its observed scope is the table itself plus the observed tags.
type Query struct {
	table        TableNameString
	distinct     bool
	columns      []ColumnString
	where        string
	whereArgs    []any
	groupBy      []ColumnString
	having       string
	havingArgs   []any
	orderBy      []OrderTerm
	limit        uint
	offset       uint
	hasLimit     bool
	observesTags []TagString
}

func (q Query) Table() TableNameString {
	return q.table
}

func (q Query) Distinct() bool {
	return q.distinct
}

func (q Query) Columns() []ColumnString {
	return q.columns
}

func (q Query) Where() string {
	return q.where
}

func (q Query) WhereArgs() []any {
	return q.whereArgs
}

func (q Query) GroupBy() []ColumnString {
	return q.groupBy
}

func (q Query) Having() string {
	return q.having
}

func (q Query) HavingArgs() []any {
	return q.havingArgs
}

func (q Query) OrderBy() []OrderTerm {
	return q.orderBy
}

// Limit returns the limit and offset and whether a limit was set at all.
func (q Query) Limit() (limit uint, offset uint, ok bool) {
	return q.limit, q.offset, q.hasLimit
}

func (q Query) ObservesTables() []TableNameString {
	return []TableNameString{q.table}
}

func (q Query) ObservesTags() []TagString {
	return q.observesTags
}

func (q Query) String() string {
	var sb strings.Builder

	sb.WriteString("Query{table=")
	sb.WriteString(q.table)

	if q.distinct {
		sb.WriteString(", distinct")
	}

	if len(q.columns) > 0 {
		fmt.Fprintf(&sb, ", columns=%v", q.columns)
	}

	if q.where != "" {
		fmt.Fprintf(&sb, ", where=%q, args=%v", q.where, q.whereArgs)
	}

	if len(q.groupBy) > 0 {
		fmt.Fprintf(&sb, ", groupBy=%v", q.groupBy)
	}

	if q.having != "" {
		fmt.Fprintf(&sb, ", having=%q, args=%v", q.having, q.havingArgs)
	}

	if len(q.orderBy) > 0 {
		terms := make([]string, 0, len(q.orderBy))
		for _, term := range q.orderBy {
			if term.descending {
				terms = append(terms, term.column+" DESC")
			} else {
				terms = append(terms, term.column+" ASC")
			}
		}
		fmt.Fprintf(&sb, ", orderBy=%v", terms)
	}

	if q.hasLimit {
		fmt.Fprintf(&sb, ", limit=%d, offset=%d", q.limit, q.offset)
	}

	if len(q.observesTags) > 0 {
		fmt.Fprintf(&sb, ", observesTags=%v", q.observesTags)
	}

	sb.WriteString("}")

	return sb.String()
}

/***** QueryBuilder *****/

// EmptyQueryBuilder only allows choosing the table, which every Query needs.
type EmptyQueryBuilder interface {
	// Table sets the table to query.
	Table(table TableNameString) QueryBuilder
}

// QueryBuilder builds a Query which must eventually be finalized with Finalize().
type QueryBuilder interface {
	Distinct() QueryBuilder
	Columns(column ColumnString, columns ...ColumnString) QueryBuilder

	// Where sets a literal condition with placeholders ("?") and its arguments.
	Where(clause string, args ...any) QueryBuilder

	GroupBy(column ColumnString, columns ...ColumnString) QueryBuilder

	// Having sets a literal group condition with placeholders ("?") and its arguments.
	Having(clause string, args ...any) QueryBuilder

	OrderBy(term OrderTerm, terms ...OrderTerm) QueryBuilder
	Limit(limit uint) QueryBuilder
	LimitOffset(limit, offset uint) QueryBuilder

	// ObservesTags adds tags a live query on this Query reacts to in addition to its table.
	//
	// It sanitizes the input:
	//	- removing empty tags ("")
	//	- sorting the tags
	//	- removing duplicate tags
	ObservesTags(tag TagString, tags ...TagString) QueryBuilder

	// Finalize returns the Query or ErrEmptyTableName.
	Finalize() (Query, error)
}

type queryBuilder struct {
	query Query
}

// BuildQuery creates an EmptyQueryBuilder.
//
//	query, err := tablestore.BuildQuery().
//		Table("tweets").
//		Where("author = ?", "alice").
//		OrderBy(tablestore.Desc("id")).
//		Finalize()
func BuildQuery() EmptyQueryBuilder {
	return queryBuilder{}
}

func (qb queryBuilder) Table(table TableNameString) QueryBuilder {
	qb.query.table = strings.TrimSpace(table)

	return qb
}

func (qb queryBuilder) Distinct() QueryBuilder {
	qb.query.distinct = true

	return qb
}

func (qb queryBuilder) Columns(column ColumnString, columns ...ColumnString) QueryBuilder {
	qb.query.columns = appendNonEmpty(slices.Clone(qb.query.columns), column, columns...)

	return qb
}

func (qb queryBuilder) Where(clause string, args ...any) QueryBuilder {
	qb.query.where = clause
	qb.query.whereArgs = slices.Clone(args)

	return qb
}

func (qb queryBuilder) GroupBy(column ColumnString, columns ...ColumnString) QueryBuilder {
	qb.query.groupBy = appendNonEmpty(slices.Clone(qb.query.groupBy), column, columns...)

	return qb
}

func (qb queryBuilder) Having(clause string, args ...any) QueryBuilder {
	qb.query.having = clause
	qb.query.havingArgs = slices.Clone(args)

	return qb
}

func (qb queryBuilder) OrderBy(term OrderTerm, terms ...OrderTerm) QueryBuilder {
	all := append([]OrderTerm{term}, terms...)
	all = slices.DeleteFunc(all, func(t OrderTerm) bool { return t.column == "" })
	qb.query.orderBy = append(slices.Clone(qb.query.orderBy), all...)

	return qb
}

func (qb queryBuilder) Limit(limit uint) QueryBuilder {
	return qb.LimitOffset(limit, 0)
}

func (qb queryBuilder) LimitOffset(limit, offset uint) QueryBuilder {
	qb.query.limit = limit
	qb.query.offset = offset
	qb.query.hasLimit = true

	return qb
}

func (qb queryBuilder) ObservesTags(tag TagString, tags ...TagString) QueryBuilder {
	qb.query.observesTags = sanitizeStrings(append(slices.Clone(qb.query.observesTags), tag), tags...)

	return qb
}

func (qb queryBuilder) Finalize() (Query, error) {
	if qb.query.table == "" {
		return Query{}, ErrEmptyTableName
	}

	return qb.query, nil
}

/***** RawQuery *****/

// RawQuery is a literal SQL statement. The system never parses the statement, so the tables and tags it
// affects or observes must be declared by the caller and are trusted as given.
type RawQuery struct {
	statement      string
	args           []any
	affectsTables  []TableNameString
	affectsTags    []TagString
	observesTables []TableNameString
	observesTags   []TagString
}

func (rq RawQuery) Statement() string {
	return rq.statement
}

func (rq RawQuery) Args() []any {
	return rq.args
}

func (rq RawQuery) AffectsTables() []TableNameString {
	return rq.affectsTables
}

func (rq RawQuery) AffectsTags() []TagString {
	return rq.affectsTags
}

func (rq RawQuery) ObservesTables() []TableNameString {
	return rq.observesTables
}

func (rq RawQuery) ObservesTags() []TagString {
	return rq.observesTags
}

func (rq RawQuery) String() string {
	return fmt.Sprintf(
		"RawQuery{statement=%q, args=%v, affectsTables=%v, affectsTags=%v, observesTables=%v, observesTags=%v}",
		rq.statement,
		rq.args,
		rq.affectsTables,
		rq.affectsTags,
		rq.observesTables,
		rq.observesTags,
	)
}

/***** RawQueryBuilder *****/

// RawQueryBuilder builds a RawQuery. All declared table and tag sets are sanitized:
// empty entries are removed, the entries are sorted and duplicates are removed.
type RawQueryBuilder interface {
	Args(args ...any) RawQueryBuilder
	AffectsTables(table TableNameString, tables ...TableNameString) RawQueryBuilder
	AffectsTags(tag TagString, tags ...TagString) RawQueryBuilder
	ObservesTables(table TableNameString, tables ...TableNameString) RawQueryBuilder
	ObservesTags(tag TagString, tags ...TagString) RawQueryBuilder

	// Finalize returns the RawQuery or ErrEmptyStatement.
	Finalize() (RawQuery, error)
}

type rawQueryBuilder struct {
	rawQuery RawQuery
}

// BuildRawQuery creates a RawQueryBuilder for the literal statement.
func BuildRawQuery(statement string) RawQueryBuilder {
	return rawQueryBuilder{rawQuery: RawQuery{statement: strings.TrimSpace(statement)}}
}

func (rb rawQueryBuilder) Args(args ...any) RawQueryBuilder {
	rb.rawQuery.args = slices.Clone(args)

	return rb
}

func (rb rawQueryBuilder) AffectsTables(table TableNameString, tables ...TableNameString) RawQueryBuilder {
	rb.rawQuery.affectsTables = sanitizeStrings(append(slices.Clone(rb.rawQuery.affectsTables), table), tables...)

	return rb
}

func (rb rawQueryBuilder) AffectsTags(tag TagString, tags ...TagString) RawQueryBuilder {
	rb.rawQuery.affectsTags = sanitizeStrings(append(slices.Clone(rb.rawQuery.affectsTags), tag), tags...)

	return rb
}

func (rb rawQueryBuilder) ObservesTables(table TableNameString, tables ...TableNameString) RawQueryBuilder {
	rb.rawQuery.observesTables = sanitizeStrings(append(slices.Clone(rb.rawQuery.observesTables), table), tables...)

	return rb
}

func (rb rawQueryBuilder) ObservesTags(tag TagString, tags ...TagString) RawQueryBuilder {
	rb.rawQuery.observesTags = sanitizeStrings(append(slices.Clone(rb.rawQuery.observesTags), tag), tags...)

	return rb
}

func (rb rawQueryBuilder) Finalize() (RawQuery, error) {
	if rb.rawQuery.statement == "" {
		return RawQuery{}, ErrEmptyStatement
	}

	return rb.rawQuery, nil
}

/***** helpers *****/

// sanitizeStrings merges the values, removes empty ones, sorts them and removes duplicates.
func sanitizeStrings(values []string, more ...string) []string {
	all := make([]string, 0, len(values)+len(more))
	all = append(all, values...)
	all = append(all, more...)
	all = slices.DeleteFunc(all, func(s string) bool { return s == "" })
	slices.Sort(all)
	all = slices.Compact(all)
	all = slices.Clip(all)

	if len(all) == 0 {
		return nil
	}

	return all
}

func appendNonEmpty(dst []string, value string, values ...string) []string {
	for _, v := range append([]string{value}, values...) {
		if v != "" {
			dst = append(dst, v)
		}
	}

	return dst
}
