// Package sqlengine provides a tablestore.Storage implementation over SQL databases.
//
// Statements are built with goqu for the PostgreSQL and the SQLite dialect and executed through one
// of three database libraries: a pgx connection pool, a database/sql DB (lib/pq, go-sqlite3, ...)
// or a sqlx DB. Each can be combined with a read replica, reads carrying
// tablestore.WithEventualConsistency outside a transaction are served from the replica.
//
// Transactions live in the context returned by BeginTransaction. Beginning a transaction on a context
// which already carries one opens a savepoint, ending it releases the savepoint or rolls back to it.
//
// Busy databases (SQLite) and serialization failures or deadlocks (PostgreSQL) are reported as
// tablestore.ErrTransactionConflict, which tablestore.RetryInterceptor retries.
//
// Example:
//
//	storage, err := sqlengine.OpenSQLite("file:tweets.db")
//	store, err := tablestore.NewStore(storage, tablestore.WithTypeMapping(tweetMapping))
//
//	pool, err := pgxpool.NewWithConfig(ctx, config)
//	storage, err := sqlengine.NewStoreFromPGXPool(pool, sqlengine.WithLogger(logger))
package sqlengine
