package tablestore

import (
	"fmt"
	"slices"
)

// Changes describes what a mutation affected: the names of the tables and the tags.
// A Changes value is immutable and never has both sets empty.
type Changes struct {
	tables []TableNameString
	tags   []TagString
}

// NewChanges creates Changes from the affected tables and tags.
// Both sets are sanitized; ErrEmptyChanges is returned when nothing remains.
func NewChanges(tables []TableNameString, tags []TagString) (Changes, error) {
	c := Changes{
		tables: sanitizeStrings(tables),
		tags:   sanitizeStrings(tags),
	}

	if len(c.tables) == 0 && len(c.tags) == 0 {
		return Changes{}, ErrEmptyChanges
	}

	return c, nil
}

// ChangesInTable creates Changes for a single table and optional tags.
func ChangesInTable(table TableNameString, tags ...TagString) (Changes, error) {
	return NewChanges([]TableNameString{table}, tags)
}

// ChangesOfTags creates Changes that only carry tags.
func ChangesOfTags(tag TagString, tags ...TagString) (Changes, error) {
	return NewChanges(nil, append([]TagString{tag}, tags...))
}

func (c Changes) AffectedTables() []TableNameString {
	return slices.Clone(c.tables)
}

func (c Changes) AffectedTags() []TagString {
	return slices.Clone(c.tags)
}

// IsEmpty is only true for the zero value.
func (c Changes) IsEmpty() bool {
	return len(c.tables) == 0 && len(c.tags) == 0
}

// Merge returns the union of both table sets and both tag sets.
func (c Changes) Merge(other Changes) Changes {
	return Changes{
		tables: sanitizeStrings(c.tables, other.tables...),
		tags:   sanitizeStrings(c.tags, other.tags...),
	}
}

// IsRelated reports whether the table sets intersect or the tag sets intersect.
func (c Changes) IsRelated(other Changes) bool {
	return intersects(c.tables, other.tables) || intersects(c.tags, other.tags)
}

// Equal compares both sets.
func (c Changes) Equal(other Changes) bool {
	return slices.Equal(c.tables, other.tables) && slices.Equal(c.tags, other.tags)
}

func (c Changes) String() string {
	return fmt.Sprintf("Changes{affectedTables=%v, affectedTags=%v}", c.tables, c.tags)
}

// intersects expects both slices to be sorted.
func intersects(a, b []string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}

	return false
}

/***** ChangesFilter *****/

// ChangesFilter selects the Changes a subscriber is interested in.
// An empty filter matches all Changes.
type ChangesFilter struct {
	tables []TableNameString
	tags   []TagString
}

// MatchAllChanges creates a filter that lets every Changes value pass.
func MatchAllChanges() ChangesFilter {
	return ChangesFilter{}
}

// MatchTables creates a filter for Changes affecting any of the tables.
func MatchTables(table TableNameString, tables ...TableNameString) ChangesFilter {
	return ChangesFilter{tables: sanitizeStrings([]string{table}, tables...)}
}

// MatchTags creates a filter for Changes affecting any of the tags.
func MatchTags(tag TagString, tags ...TagString) ChangesFilter {
	return ChangesFilter{tags: sanitizeStrings([]string{tag}, tags...)}
}

// MatchTablesOrTags creates a filter for Changes affecting any of the tables or any of the tags.
func MatchTablesOrTags(tables []TableNameString, tags []TagString) ChangesFilter {
	return ChangesFilter{tables: sanitizeStrings(tables), tags: sanitizeStrings(tags)}
}

func (f ChangesFilter) Tables() []TableNameString {
	return f.tables
}

func (f ChangesFilter) Tags() []TagString {
	return f.tags
}

func (f ChangesFilter) MatchesAll() bool {
	return len(f.tables) == 0 && len(f.tags) == 0
}

// Matches reports whether the Changes are related to the filter.
func (f ChangesFilter) Matches(c Changes) bool {
	if f.MatchesAll() {
		return true
	}

	return intersects(f.tables, c.tables) || intersects(f.tags, c.tags)
}

func (f ChangesFilter) String() string {
	return fmt.Sprintf("ChangesFilter{tables=%v, tags=%v}", f.tables, f.tags)
}
