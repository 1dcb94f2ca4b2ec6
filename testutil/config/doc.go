// Package config provides database configuration for tablestore testing.
//
// It contains factory functions for creating database connections for every adapter the SQL engine
// supports (pgx.Pool, sql.DB, sqlx.DB) and for in-memory SQLite databases.
//
// PostgreSQL connections are configured from the TABLESTORE_POSTGRES_DSN (and optionally the
// TABLESTORE_POSTGRES_REPLICA_DSN) environment variable, tests skip themselves when it is not set.
package config
