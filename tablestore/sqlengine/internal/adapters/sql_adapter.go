package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBAdapter for sql.DB.
type SQLAdapter struct {
	db        *sql.DB
	replicaDB *sql.DB // optional replica for read operations
	ownsDB    bool
}

// NewSQLAdapter creates a new SQL adapter.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// NewSQLAdapterWithReplica creates a new SQL adapter with a primary and a replica database.
func NewSQLAdapterWithReplica(db *sql.DB, replica *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, replicaDB: replica}
}

// NewOwningSQLAdapter creates a SQL adapter which closes the database when it is closed itself.
func NewOwningSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, ownsDB: true}
}

func (s *SQLAdapter) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	return queryStd(ctx, s.db, query, args...)
}

func (s *SQLAdapter) QueryReplica(ctx context.Context, query string, args ...any) (DBRows, error) {
	if s.replicaDB != nil {
		return queryStd(ctx, s.replicaDB, query, args...)
	}

	return queryStd(ctx, s.db, query, args...)
}

func (s *SQLAdapter) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

func (s *SQLAdapter) Begin(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &stdTx{tx: tx}, nil
}

func (s *SQLAdapter) HasReplica() bool {
	return s.replicaDB != nil
}

// Close closes the database only if the adapter opened it, connections handed in stay open.
func (s *SQLAdapter) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}

	return nil
}

func queryStd(ctx context.Context, db *sql.DB, query string, args ...any) (DBRows, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}
