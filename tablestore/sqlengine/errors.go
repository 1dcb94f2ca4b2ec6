package sqlengine

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
)

const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
)

// classify joins tablestore.ErrTransactionConflict to errors a retry of the whole operation can resolve.
func classify(err error) error {
	if err == nil || !isConflict(err) {
		return err
	}

	return errors.Join(tablestore.ErrTransactionConflict, err)
}

func isConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	var sqliteErrNo sqlite3.ErrNo
	if errors.As(err, &sqliteErrNo) {
		return sqliteErrNo == sqlite3.ErrBusy || sqliteErrNo == sqlite3.ErrLocked
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCodeSerializationFailure || pgErr.Code == pgCodeDeadlockDetected
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgCodeSerializationFailure || pqErr.Code == pgCodeDeadlockDetected
	}

	return false
}
