package adapters

import (
	"context"
	"errors"
)

// ErrLastInsertIDUnsupported is returned by drivers that cannot report the id of an inserted row.
var ErrLastInsertIDUnsupported = errors.New("last insert id is not supported by this driver, use a returning column")

// DBExecutor runs queries and statements, either directly on a connection pool or inside a transaction.
type DBExecutor interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
}

// DBAdapter defines the interface for database operations needed by the storage engine.
type DBAdapter interface {
	DBExecutor

	// QueryReplica runs a read on the replica, or on the primary if no replica is configured.
	QueryReplica(ctx context.Context, query string, args ...any) (DBRows, error)
	Begin(ctx context.Context) (DBTx, error)
	HasReplica() bool
	Close() error
}

// DBTx is an open database transaction.
type DBTx interface {
	DBExecutor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// MapScanner is implemented by rows that can materialize the current row as a column map themselves.
type MapScanner interface {
	MapScan(dest map[string]any) error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
	LastInsertID() (int64, error)
}
