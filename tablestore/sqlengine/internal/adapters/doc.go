// Package adapters provide database adapter implementations for the SQL storage engine.
//
// This package implements the adapter pattern to support multiple database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, allowing the storage engine to work with any
// supported database connection type, with or without a read replica.
//
// The adapters handle the specifics of each database library (transactions, result rows,
// affected rows, last insert ids) while presenting a unified interface.
package adapters
