package storagestub

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
)

const (
	CallBeginTransaction         = "BeginTransaction"
	CallSetTransactionSuccessful = "SetTransactionSuccessful"
	CallEndTransaction           = "EndTransaction"
	CallExecuteSQL               = "ExecuteSQL"
	CallRawQuery                 = "RawQuery"
	CallQuery                    = "Query"
	CallInsert                   = "Insert"
	CallInsertWithOnConflict     = "InsertWithOnConflict"
	CallUpdate                   = "Update"
	CallDelete                   = "Delete"
	CallClose                    = "Close"
)

type txKey struct{}

type txFrame struct {
	depth      int
	successful bool
}

// StorageStub is a tablestore.Storage recording every call. Reads are served from rows kept per table,
// which Insert appends to. The behavior of each call can be replaced with the function fields.
type StorageStub struct {
	QueryFunc                func(ctx context.Context, query tablestore.Query) (tablestore.Cursor, error)
	RawQueryFunc             func(ctx context.Context, rawQuery tablestore.RawQuery) (tablestore.Cursor, error)
	ExecuteSQLFunc           func(ctx context.Context, rawQuery tablestore.RawQuery) error
	InsertFunc               func(ctx context.Context, insertQuery tablestore.InsertQuery, row tablestore.Row) (int64, error)
	UpdateFunc               func(ctx context.Context, updateQuery tablestore.UpdateQuery, row tablestore.Row) (int64, error)
	DeleteFunc               func(ctx context.Context, deleteQuery tablestore.DeleteQuery) (int64, error)
	BeginTransactionErr      error
	EndTransactionErr        error
	SetTransactionSuccessErr error

	mu            sync.Mutex
	calls         []string
	rows          map[tablestore.TableNameString][]tablestore.Row
	commits       int
	rollbacks     int
	activeTxDepth int
}

// New creates an empty StorageStub.
func New() *StorageStub {
	return &StorageStub{rows: make(map[tablestore.TableNameString][]tablestore.Row)}
}

// Seed adds rows to a table without recording a call.
func (s *StorageStub) Seed(table tablestore.TableNameString, rows ...tablestore.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[table] = append(s.rows[table], rows...)
}

// Rows returns a copy of the rows of a table.
func (s *StorageStub) Rows(table tablestore.TableNameString) []tablestore.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.rows[table])
}

// Calls returns the names of all recorded calls in order.
func (s *StorageStub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.calls)
}

// CallCount returns how often the named call was recorded.
func (s *StorageStub) CallCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, call := range s.calls {
		if call == name {
			count++
		}
	}

	return count
}

// Commits returns the number of ended transactions that were marked successful.
func (s *StorageStub) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commits
}

// Rollbacks returns the number of ended transactions that were not marked successful.
func (s *StorageStub) Rollbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rollbacks
}

// InTransaction reports whether a transaction is currently open.
func (s *StorageStub) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeTxDepth > 0
}

// Reset forgets all recorded calls and transaction counts, the rows are kept.
func (s *StorageStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = nil
	s.commits = 0
	s.rollbacks = 0
}

func (s *StorageStub) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, name)
}

func (s *StorageStub) BeginTransaction(ctx context.Context) (context.Context, error) {
	s.record(CallBeginTransaction)

	if s.BeginTransactionErr != nil {
		return ctx, s.BeginTransactionErr
	}

	depth := 1
	if parent, ok := ctx.Value(txKey{}).(*txFrame); ok {
		depth = parent.depth + 1
	}

	s.mu.Lock()
	s.activeTxDepth++
	s.mu.Unlock()

	return context.WithValue(ctx, txKey{}, &txFrame{depth: depth}), nil
}

func (s *StorageStub) SetTransactionSuccessful(ctx context.Context) error {
	s.record(CallSetTransactionSuccessful)

	frame, ok := ctx.Value(txKey{}).(*txFrame)
	if !ok {
		return tablestore.ErrTransactionNotActive
	}

	if s.SetTransactionSuccessErr != nil {
		return s.SetTransactionSuccessErr
	}

	frame.successful = true

	return nil
}

func (s *StorageStub) EndTransaction(ctx context.Context) error {
	s.record(CallEndTransaction)

	frame, ok := ctx.Value(txKey{}).(*txFrame)
	if !ok {
		return tablestore.ErrTransactionNotActive
	}

	s.mu.Lock()
	s.activeTxDepth--
	if frame.successful {
		s.commits++
	} else {
		s.rollbacks++
	}
	s.mu.Unlock()

	return s.EndTransactionErr
}

func (s *StorageStub) ExecuteSQL(ctx context.Context, rawQuery tablestore.RawQuery) error {
	s.record(CallExecuteSQL)

	if s.ExecuteSQLFunc != nil {
		return s.ExecuteSQLFunc(ctx, rawQuery)
	}

	return nil
}

func (s *StorageStub) RawQuery(ctx context.Context, rawQuery tablestore.RawQuery) (tablestore.Cursor, error) {
	s.record(CallRawQuery)

	if s.RawQueryFunc != nil {
		return s.RawQueryFunc(ctx, rawQuery)
	}

	var rows []tablestore.Row
	for _, table := range rawQuery.ObservesTables() {
		rows = append(rows, s.Rows(table)...)
	}

	return NewSliceCursor(rows...), nil
}

func (s *StorageStub) Query(ctx context.Context, query tablestore.Query) (tablestore.Cursor, error) {
	s.record(CallQuery)

	if s.QueryFunc != nil {
		return s.QueryFunc(ctx, query)
	}

	return NewSliceCursor(s.Rows(query.Table())...), nil
}

func (s *StorageStub) Insert(ctx context.Context, insertQuery tablestore.InsertQuery, row tablestore.Row) (int64, error) {
	s.record(CallInsert)

	return s.insert(ctx, insertQuery, row)
}

func (s *StorageStub) InsertWithOnConflict(
	ctx context.Context,
	insertQuery tablestore.InsertQuery,
	row tablestore.Row,
	_ tablestore.ConflictAlgorithm,
) (int64, error) {

	s.record(CallInsertWithOnConflict)

	return s.insert(ctx, insertQuery, row)
}

func (s *StorageStub) insert(ctx context.Context, insertQuery tablestore.InsertQuery, row tablestore.Row) (int64, error) {
	if s.InsertFunc != nil {
		return s.InsertFunc(ctx, insertQuery, row)
	}

	if len(row) == 0 {
		return 0, tablestore.ErrNoColumnsToWrite
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[insertQuery.Table()] = append(s.rows[insertQuery.Table()], row.Copy())

	return int64(len(s.rows[insertQuery.Table()])), nil
}

func (s *StorageStub) Update(ctx context.Context, updateQuery tablestore.UpdateQuery, row tablestore.Row) (int64, error) {
	s.record(CallUpdate)

	if s.UpdateFunc != nil {
		return s.UpdateFunc(ctx, updateQuery, row)
	}

	return 0, nil
}

func (s *StorageStub) Delete(ctx context.Context, deleteQuery tablestore.DeleteQuery) (int64, error) {
	s.record(CallDelete)

	if s.DeleteFunc != nil {
		return s.DeleteFunc(ctx, deleteQuery)
	}

	return 0, nil
}

func (s *StorageStub) Close() error {
	s.record(CallClose)

	return nil
}

// ErrStubFailure is a generic failure to be returned by the function fields.
var ErrStubFailure = errors.New("storage stub failure")
