package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // driver import

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore/sqlengine/internal/adapters"
)

const (
	logMsgBuildQueryFailed     = "failed to build sql query"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgDBExecFailed         = "database statement execution failed"
	logMsgRowsAffectedFailed   = "failed to get rows affected count"
	logMsgInsertIDFailed       = "failed to get the id of the inserted row"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgTransactionConflict  = "transaction conflict detected"
	logMsgTransactionBegun     = "transaction begun"
	logMsgTransactionCommitted = "transaction committed"
	logMsgTransactionRolledBk  = "transaction rolled back"
	logMsgTransactionFailed    = "transaction could not be finished"
	logMsgSQLExecuted          = "executed sql for: "
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrTable               = "table"
	logAttrDurationMS          = "duration_ms"
	logAttrSavepoint           = "savepoint"
	logActionQuery             = "query"
	logActionRawQuery          = "raw_query"
	logActionExecuteSQL        = "execute_sql"
	logActionInsert            = "insert"
	logActionUpdate            = "update"
	logActionDelete            = "delete"
	logActionBegin             = "begin"
	logActionCommit            = "commit"
	logActionRollback          = "rollback"
	sqliteDriverName           = "sqlite3"
	sqliteBusyTimeoutMS        = 5000
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
)

// Store is a tablestore.Storage backed by a SQL database.
type Store struct {
	db               adapters.DBAdapter
	dialect          Dialect
	builder          goqu.DialectWrapper
	logger           tablestore.Logger
	contextualLogger tablestore.ContextualLogger
	metricsCollector tablestore.MetricsCollector
	tracingCollector tablestore.TracingCollector
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, tablestore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), DialectPostgres, options...)
}

// NewStoreFromPGXPoolWithReplica creates a new Store using a primary and a replica pgx Pool.
func NewStoreFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil || replica == nil {
		return nil, tablestore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapterWithReplica(db, replica), DialectPostgres, options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
// Use WithDialect(DialectSQLite) for a SQLite database.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, tablestore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), DialectPostgres, options...)
}

// NewStoreFromSQLDBWithReplica creates a new Store using a primary and a replica sql.DB.
func NewStoreFromSQLDBWithReplica(db *sql.DB, replica *sql.DB, options ...Option) (*Store, error) {
	if db == nil || replica == nil {
		return nil, tablestore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapterWithReplica(db, replica), DialectPostgres, options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, tablestore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), DialectPostgres, options...)
}

// NewStoreFromSQLXWithReplica creates a new Store using a primary and a replica sqlx.DB.
func NewStoreFromSQLXWithReplica(db *sqlx.DB, replica *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil || replica == nil {
		return nil, tablestore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapterWithReplica(db, replica), DialectPostgres, options...)
}

// OpenSQLite opens (and creates if needed) a SQLite database with go-sqlite3 and returns a Store owning it.
//
// The database is configured with:
//   - a single connection, SQLite only supports one writer at a time
//   - WAL mode for file databases
//   - a busy timeout for lock contention
//   - foreign key enforcement
//
// Closing the Store closes the database.
func OpenSQLite(dsn string, options ...Option) (*Store, error) {
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err = db.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect to database: %w", err), db.Close())
	}

	if err = applySQLitePragmas(db); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	store, err := newStore(adapters.NewOwningSQLAdapter(db), DialectSQLite, options...)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	return store, nil
}

func applySQLitePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeoutMS),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func newStore(db adapters.DBAdapter, dialect Dialect, options ...Option) (*Store, error) {
	builder, err := builderFor(dialect)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:      db,
		dialect: dialect,
		builder: builder,
	}

	for _, option := range options {
		if err = option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Dialect returns the SQL dialect the Store builds statements for.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// HasReplica reports whether reads with eventual consistency can be served from a replica.
func (s *Store) HasReplica() bool {
	return s.db.HasReplica()
}

// Query runs a structured read. Outside a transaction and with tablestore.EventualConsistency
// in the context it is served from the replica.
func (s *Store) Query(ctx context.Context, query tablestore.Query) (tablestore.Cursor, error) {
	sqlQuery, args, buildErr := s.buildSelectQuery(query)
	if buildErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrTable, query.Table())
		return nil, errors.Join(tablestore.ErrBuildingQueryFailed, buildErr)
	}

	rows, err := s.executeQuery(ctx, logActionQuery, sqlQuery, args)
	if err != nil {
		return nil, err
	}

	return newCursor(rows), nil
}

// RawQuery runs a literal read statement, routed like Query.
func (s *Store) RawQuery(ctx context.Context, rawQuery tablestore.RawQuery) (tablestore.Cursor, error) {
	rows, err := s.executeQuery(ctx, logActionRawQuery, rawQuery.Statement(), rawQuery.Args())
	if err != nil {
		return nil, err
	}

	return newCursor(rows), nil
}

// ExecuteSQL runs a literal statement which returns no rows.
func (s *Store) ExecuteSQL(ctx context.Context, rawQuery tablestore.RawQuery) error {
	_, err := s.executeStatement(ctx, logActionExecuteSQL, rawQuery.Statement(), rawQuery.Args())

	return err
}

func (s *Store) Insert(ctx context.Context, insertQuery tablestore.InsertQuery, row tablestore.Row) (int64, error) {
	return s.InsertWithOnConflict(ctx, insertQuery, row, tablestore.ConflictNone)
}

// InsertWithOnConflict inserts a row and returns its id.
//
// The id is taken from the driver (SQLite) or from the returning column of the insert query (PostgreSQL).
// PostgreSQL inserts without returning column report 0. Inserts skipped by ConflictIgnore report tablestore.NoRowID.
func (s *Store) InsertWithOnConflict(
	ctx context.Context,
	insertQuery tablestore.InsertQuery,
	row tablestore.Row,
	algorithm tablestore.ConflictAlgorithm,
) (int64, error) {

	sqlQuery, args, buildErr := s.buildInsertQuery(insertQuery, row, algorithm)
	if buildErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrTable, insertQuery.Table())
		return 0, errors.Join(tablestore.ErrBuildingQueryFailed, buildErr)
	}

	if s.usesReturning(insertQuery) {
		return s.insertReturning(ctx, sqlQuery, args)
	}

	result, err := s.executeStatement(ctx, logActionInsert, sqlQuery, args)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := s.rowsAffected(ctx, result)
	if err != nil {
		return 0, err
	}

	if rowsAffected == 0 {
		return tablestore.NoRowID, nil
	}

	if s.dialect == DialectPostgres {
		return 0, nil
	}

	id, idErr := result.LastInsertID()
	if idErr != nil {
		s.logError(ctx, logMsgInsertIDFailed, idErr)
		return 0, errors.Join(tablestore.ErrGettingInsertIDFailed, idErr)
	}

	return id, nil
}

func (s *Store) insertReturning(ctx context.Context, sqlQuery sqlQueryString, args []any) (int64, error) {
	rows, err := s.executeWriteQuery(ctx, logActionInsert, sqlQuery, args)
	if err != nil {
		return 0, err
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return 0, errors.Join(tablestore.ErrExecutingStatementFailed, classify(rowsErr))
		}

		return tablestore.NoRowID, nil
	}

	var id int64
	if scanErr := rows.Scan(&id); scanErr != nil {
		s.logError(ctx, logMsgInsertIDFailed, scanErr)
		return 0, errors.Join(tablestore.ErrGettingInsertIDFailed, scanErr)
	}

	return id, nil
}

func (s *Store) Update(ctx context.Context, updateQuery tablestore.UpdateQuery, row tablestore.Row) (int64, error) {
	sqlQuery, args, buildErr := s.buildUpdateQuery(updateQuery, row)
	if buildErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrTable, updateQuery.Table())
		return 0, errors.Join(tablestore.ErrBuildingQueryFailed, buildErr)
	}

	result, err := s.executeStatement(ctx, logActionUpdate, sqlQuery, args)
	if err != nil {
		return 0, err
	}

	return s.rowsAffected(ctx, result)
}

func (s *Store) Delete(ctx context.Context, deleteQuery tablestore.DeleteQuery) (int64, error) {
	sqlQuery, args, buildErr := s.buildDeleteQuery(deleteQuery)
	if buildErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrTable, deleteQuery.Table())
		return 0, errors.Join(tablestore.ErrBuildingQueryFailed, buildErr)
	}

	result, err := s.executeStatement(ctx, logActionDelete, sqlQuery, args)
	if err != nil {
		return 0, err
	}

	return s.rowsAffected(ctx, result)
}

// Close releases the database if the Store opened it (OpenSQLite). Connections handed to a constructor
// are owned by the caller.
func (s *Store) Close() error {
	return s.db.Close()
}

// executeQuery runs a read on the transaction in ctx, the replica or the primary.
func (s *Store) executeQuery(
	ctx context.Context,
	action string,
	sqlQuery sqlQueryString,
	args []any,
) (adapters.DBRows, error) {

	var rows adapters.DBRows

	err := s.instrument(ctx, action, sqlQuery, func(ctx context.Context) error {
		var queryErr error

		switch frame := s.activeFrame(ctx); {
		case frame != nil:
			rows, queryErr = frame.tx.Query(ctx, sqlQuery, args...)
		case tablestore.GetConsistencyLevel(ctx) == tablestore.EventualConsistency:
			rows, queryErr = s.db.QueryReplica(ctx, sqlQuery, args...)
		default:
			rows, queryErr = s.db.Query(ctx, sqlQuery, args...)
		}

		return queryErr
	})

	if err != nil {
		s.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return nil, errors.Join(tablestore.ErrQueryingFailed, s.classifyAndRecord(ctx, action, err))
	}

	return rows, nil
}

// executeWriteQuery runs a statement returning rows on the transaction in ctx or the primary.
func (s *Store) executeWriteQuery(
	ctx context.Context,
	action string,
	sqlQuery sqlQueryString,
	args []any,
) (adapters.DBRows, error) {

	var rows adapters.DBRows

	err := s.instrument(ctx, action, sqlQuery, func(ctx context.Context) error {
		var queryErr error
		rows, queryErr = s.executor(ctx).Query(ctx, sqlQuery, args...)

		return queryErr
	})

	if err != nil {
		s.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, sqlQuery)
		return nil, errors.Join(tablestore.ErrExecutingStatementFailed, s.classifyAndRecord(ctx, action, err))
	}

	return rows, nil
}

// executeStatement runs a statement on the transaction in ctx or the primary.
func (s *Store) executeStatement(
	ctx context.Context,
	action string,
	sqlQuery sqlQueryString,
	args []any,
) (adapters.DBResult, error) {

	var result adapters.DBResult

	err := s.instrument(ctx, action, sqlQuery, func(ctx context.Context) error {
		var execErr error
		result, execErr = s.executor(ctx).Exec(ctx, sqlQuery, args...)

		return execErr
	})

	if err != nil {
		s.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, sqlQuery)
		return nil, errors.Join(tablestore.ErrExecutingStatementFailed, s.classifyAndRecord(ctx, action, err))
	}

	return result, nil
}

func (s *Store) executor(ctx context.Context) adapters.DBExecutor {
	if frame := s.activeFrame(ctx); frame != nil {
		return frame.tx
	}

	return s.db
}

func (s *Store) rowsAffected(ctx context.Context, result adapters.DBResult) (rowsAffectedInt64, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logError(ctx, logMsgRowsAffectedFailed, err)
		return 0, errors.Join(tablestore.ErrGettingRowsAffectedFailed, err)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (s *Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// classifyAndRecord marks conflicts with tablestore.ErrTransactionConflict and counts them.
func (s *Store) classifyAndRecord(ctx context.Context, action string, err error) error {
	classified := classify(err)
	if errors.Is(classified, tablestore.ErrTransactionConflict) {
		s.logInfo(ctx, logMsgTransactionConflict, logAttrError, err.Error())
		s.recordConflictMetricsContext(ctx, action)
	}

	return classified
}

func (s *Store) instrument(
	ctx context.Context,
	action string,
	sqlQuery sqlQueryString,
	run func(ctx context.Context) error,
) error {

	ctx, span := s.startTraceSpan(ctx, action, map[string]string{
		spanAttrOperation:   action,
		spanAttrConsistency: tablestore.GetConsistencyLevel(ctx).String(),
	})

	start := time.Now()
	err := run(ctx)
	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, action, duration)

	status := statusSuccess
	if err != nil {
		status = statusError
		s.recordErrorMetricsContext(ctx, action, errorTypeOf(err))
	}

	s.recordDurationMetricsContext(ctx, metricStatementDuration, duration, action, status)
	s.finishTraceSpan(span, status, nil)

	return err
}
