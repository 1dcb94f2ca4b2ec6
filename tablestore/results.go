package tablestore

import (
	"fmt"
	"slices"
)

/***** PutResult *****/

// PutResult is the outcome of putting one item: either an insert or an update.
type PutResult struct {
	insertedID     *int64
	rowsUpdated    *int64
	affectedTables []TableNameString
	affectedTags   []TagString
}

// NewInsertResult creates a PutResult for an insert. Pass NoRowID when no row was written.
func NewInsertResult(insertedID int64, table TableNameString, tags ...TagString) PutResult {
	return PutResult{
		insertedID:     &insertedID,
		affectedTables: sanitizeStrings([]string{table}),
		affectedTags:   sanitizeStrings(tags),
	}
}

// NewUpdateResult creates a PutResult for an update of rowsUpdated rows.
func NewUpdateResult(rowsUpdated int64, table TableNameString, tags ...TagString) PutResult {
	return PutResult{
		rowsUpdated:    &rowsUpdated,
		affectedTables: sanitizeStrings([]string{table}),
		affectedTags:   sanitizeStrings(tags),
	}
}

func (r PutResult) WasInserted() bool {
	return r.insertedID != nil && *r.insertedID != NoRowID
}

func (r PutResult) WasNotInserted() bool {
	return !r.WasInserted()
}

func (r PutResult) WasUpdated() bool {
	return r.rowsUpdated != nil && *r.rowsUpdated > 0
}

func (r PutResult) WasNotUpdated() bool {
	return !r.WasUpdated()
}

// InsertedID returns the id of the inserted row, ok is false for update results.
func (r PutResult) InsertedID() (id int64, ok bool) {
	if r.insertedID == nil {
		return 0, false
	}

	return *r.insertedID, true
}

func (r PutResult) NumberOfRowsUpdated() int64 {
	if r.rowsUpdated == nil {
		return 0
	}

	return *r.rowsUpdated
}

func (r PutResult) AffectedTables() []TableNameString {
	return slices.Clone(r.affectedTables)
}

func (r PutResult) AffectedTags() []TagString {
	return slices.Clone(r.affectedTags)
}

// Changes returns the Changes to publish, ok is false if nothing was inserted or updated.
func (r PutResult) Changes() (Changes, bool) {
	if !r.WasInserted() && !r.WasUpdated() {
		return Changes{}, false
	}

	changes, err := NewChanges(r.affectedTables, r.affectedTags)
	if err != nil {
		return Changes{}, false
	}

	return changes, true
}

func (r PutResult) String() string {
	switch {
	case r.insertedID != nil:
		return fmt.Sprintf("PutResult{insertedID=%d, tables=%v, tags=%v}", *r.insertedID, r.affectedTables, r.affectedTags)
	case r.rowsUpdated != nil:
		return fmt.Sprintf("PutResult{rowsUpdated=%d, tables=%v, tags=%v}", *r.rowsUpdated, r.affectedTables, r.affectedTags)
	default:
		return "PutResult{}"
	}
}

/***** DeleteResult *****/

// DeleteResult is the outcome of deleting one item or running one DeleteQuery.
type DeleteResult struct {
	rowsDeleted    int64
	affectedTables []TableNameString
	affectedTags   []TagString
}

// NewDeleteResult creates a DeleteResult.
func NewDeleteResult(rowsDeleted int64, tables []TableNameString, tags []TagString) DeleteResult {
	return DeleteResult{
		rowsDeleted:    rowsDeleted,
		affectedTables: sanitizeStrings(tables),
		affectedTags:   sanitizeStrings(tags),
	}
}

func (r DeleteResult) NumberOfRowsDeleted() int64 {
	return r.rowsDeleted
}

func (r DeleteResult) AffectedTables() []TableNameString {
	return slices.Clone(r.affectedTables)
}

func (r DeleteResult) AffectedTags() []TagString {
	return slices.Clone(r.affectedTags)
}

// Changes returns the Changes to publish, ok is false if no row was deleted.
func (r DeleteResult) Changes() (Changes, bool) {
	if r.rowsDeleted <= 0 {
		return Changes{}, false
	}

	changes, err := NewChanges(r.affectedTables, r.affectedTags)
	if err != nil {
		return Changes{}, false
	}

	return changes, true
}

func (r DeleteResult) String() string {
	return fmt.Sprintf("DeleteResult{rowsDeleted=%d, tables=%v, tags=%v}", r.rowsDeleted, r.affectedTables, r.affectedTags)
}

/***** SQLResult *****/

// SQLResult is the outcome of ExecuteSQL: the Changes that were published, if the RawQuery declared any.
type SQLResult struct {
	changes    Changes
	hasChanges bool
}

func (r SQLResult) Changes() (Changes, bool) {
	return r.changes, r.hasChanges
}

func (r SQLResult) String() string {
	if !r.hasChanges {
		return "SQLResult{}"
	}

	return fmt.Sprintf("SQLResult{%s}", r.changes)
}

/***** batch results *****/

// ItemResult pairs one input item of a batch with its individual result.
type ItemResult[T any, R any] struct {
	Item   T
	Result R
}

// PutResults holds the individual results of a batch put in input order.
// It does not carry merged Changes, the executor publishes those.
type PutResults[T any] struct {
	results []ItemResult[T, PutResult]
}

func (r PutResults[T]) Results() []ItemResult[T, PutResult] {
	return slices.Clone(r.results)
}

func (r PutResults[T]) Len() int {
	return len(r.results)
}

// ResultFor returns the result of the item at index i of the input.
func (r PutResults[T]) ResultFor(i int) (PutResult, bool) {
	if i < 0 || i >= len(r.results) {
		return PutResult{}, false
	}

	return r.results[i].Result, true
}

func (r PutResults[T]) NumberOfInserts() int {
	n := 0
	for _, ir := range r.results {
		if ir.Result.WasInserted() {
			n++
		}
	}

	return n
}

func (r PutResults[T]) NumberOfUpdates() int {
	n := 0
	for _, ir := range r.results {
		if ir.Result.WasUpdated() {
			n++
		}
	}

	return n
}

func (r PutResults[T]) String() string {
	return fmt.Sprintf("PutResults{items=%d, inserts=%d, updates=%d}", r.Len(), r.NumberOfInserts(), r.NumberOfUpdates())
}

// DeleteResults holds the individual results of a batch delete in input order.
type DeleteResults[T any] struct {
	results []ItemResult[T, DeleteResult]
}

func (r DeleteResults[T]) Results() []ItemResult[T, DeleteResult] {
	return slices.Clone(r.results)
}

func (r DeleteResults[T]) Len() int {
	return len(r.results)
}

// ResultFor returns the result of the item at index i of the input.
func (r DeleteResults[T]) ResultFor(i int) (DeleteResult, bool) {
	if i < 0 || i >= len(r.results) {
		return DeleteResult{}, false
	}

	return r.results[i].Result, true
}

func (r DeleteResults[T]) NumberOfRowsDeleted() int64 {
	var n int64
	for _, ir := range r.results {
		n += ir.Result.NumberOfRowsDeleted()
	}

	return n
}

func (r DeleteResults[T]) String() string {
	return fmt.Sprintf("DeleteResults{items=%d, rowsDeleted=%d}", r.Len(), r.NumberOfRowsDeleted())
}
