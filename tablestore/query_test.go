package tablestore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
)

func Test_BuildQuery_When_TableIsBlank_Then_FinalizeFails(t *testing.T) {
	// act
	_, err := tablestore.BuildQuery().Table("   ").Finalize()

	// assert
	assert.ErrorIs(t, err, tablestore.ErrEmptyTableName)
}

func Test_BuildQuery_When_AllClausesAreSet_Then_QueryCarriesThem(t *testing.T) {
	// act
	query, err := tablestore.BuildQuery().
		Table(" tweets ").
		Distinct().
		Columns("author", "", "count(*)").
		Where("likes > ?", 3).
		GroupBy("author").
		Having("count(*) > ?", 1).
		OrderBy(tablestore.Desc("author"), tablestore.Asc("")).
		LimitOffset(10, 20).
		ObservesTags("timeline", "", "feed", "timeline").
		Finalize()

	// assert
	require.NoError(t, err)
	assert.Equal(t, "tweets", query.Table())
	assert.True(t, query.Distinct())
	assert.Equal(t, []tablestore.ColumnString{"author", "count(*)"}, query.Columns())
	assert.Equal(t, "likes > ?", query.Where())
	assert.Equal(t, []any{3}, query.WhereArgs())
	assert.Equal(t, []tablestore.ColumnString{"author"}, query.GroupBy())
	assert.Equal(t, "count(*) > ?", query.Having())
	assert.Equal(t, []any{1}, query.HavingArgs())
	require.Len(t, query.OrderBy(), 1)
	assert.Equal(t, "author", query.OrderBy()[0].Column())
	assert.True(t, query.OrderBy()[0].Descending())

	limit, offset, ok := query.Limit()
	assert.True(t, ok)
	assert.Equal(t, uint(10), limit)
	assert.Equal(t, uint(20), offset)

	assert.Equal(t, []tablestore.TableNameString{"tweets"}, query.ObservesTables())
	assert.Equal(t, []tablestore.TagString{"feed", "timeline"}, query.ObservesTags())
}

func Test_BuildQuery_When_NoLimitIsSet_Then_LimitIsNotOK(t *testing.T) {
	// act
	query, err := tablestore.BuildQuery().Table("tweets").Finalize()

	// assert
	require.NoError(t, err)
	_, _, ok := query.Limit()
	assert.False(t, ok)
	assert.Contains(t, query.String(), "table=tweets")
}

func Test_BuildRawQuery_When_StatementIsEmpty_Then_FinalizeFails(t *testing.T) {
	// act
	_, err := tablestore.BuildRawQuery("").Finalize()

	// assert
	assert.ErrorIs(t, err, tablestore.ErrEmptyStatement)
}

func Test_BuildRawQuery_When_TablesAndTagsAreDeclared_Then_TheyAreSanitized(t *testing.T) {
	// act
	rawQuery, err := tablestore.BuildRawQuery("UPDATE tweets SET likes = likes + 1 WHERE id = ?").
		Args(42).
		AffectsTables("tweets", "", "tweets", "authors").
		AffectsTags("timeline", "").
		ObservesTables("users").
		ObservesTags("feed", "feed").
		Finalize()

	// assert
	require.NoError(t, err)
	assert.Equal(t, []any{42}, rawQuery.Args())
	assert.Equal(t, []tablestore.TableNameString{"authors", "tweets"}, rawQuery.AffectsTables())
	assert.Equal(t, []tablestore.TagString{"timeline"}, rawQuery.AffectsTags())
	assert.Equal(t, []tablestore.TableNameString{"users"}, rawQuery.ObservesTables())
	assert.Equal(t, []tablestore.TagString{"feed"}, rawQuery.ObservesTags())
}

func Test_BuildInsertQuery_When_TableIsEmpty_Then_FinalizeFails(t *testing.T) {
	// act
	_, err := tablestore.BuildInsertQuery("").Finalize()

	// assert
	assert.ErrorIs(t, err, tablestore.ErrEmptyTableName)
}

func Test_BuildInsertQuery_When_OptionsAreSet_Then_QueryCarriesThem(t *testing.T) {
	// act
	insertQuery, err := tablestore.BuildInsertQuery("tweets").
		NullColumnHack("content").
		Returning("id").
		OnConflict("author", "", "created_at").
		AffectsTags("timeline").
		Finalize()

	// assert
	require.NoError(t, err)
	assert.Equal(t, "content", insertQuery.NullColumnHack())
	assert.Equal(t, "id", insertQuery.ReturningColumn())
	assert.Equal(t, []tablestore.ColumnString{"author", "created_at"}, insertQuery.ConflictColumns())
	assert.Equal(t, []tablestore.TagString{"timeline"}, insertQuery.AffectsTags())
}

func Test_BuildUpdateQuery_And_BuildDeleteQuery_When_WhereIsSet_Then_QueriesCarryIt(t *testing.T) {
	// act
	updateQuery, updateErr := tablestore.BuildUpdateQuery("tweets").Where("id = ?", 1).Finalize()
	deleteQuery, deleteErr := tablestore.BuildDeleteQuery("tweets").Where("id = ?", 2).AffectsTags("timeline").Finalize()

	// assert
	require.NoError(t, updateErr)
	require.NoError(t, deleteErr)
	assert.Equal(t, "id = ?", updateQuery.Where())
	assert.Equal(t, []any{1}, updateQuery.WhereArgs())
	assert.Equal(t, []any{2}, deleteQuery.WhereArgs())
	assert.Equal(t, []tablestore.TagString{"timeline"}, deleteQuery.AffectsTags())
}
