package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
)

const (
	EnvPostgresDSN        = "TABLESTORE_POSTGRES_DSN"
	EnvPostgresReplicaDSN = "TABLESTORE_POSTGRES_REPLICA_DSN"
)

var sqliteDatabaseCounter atomic.Int64

// PostgresDSN returns the DSN for the PostgreSQL test database, if one is configured.
func PostgresDSN() (string, bool) {
	dsn := os.Getenv(EnvPostgresDSN)
	return dsn, dsn != ""
}

// PostgresReplicaDSN returns the DSN for the PostgreSQL replica test database, if one is configured.
func PostgresReplicaDSN() (string, bool) {
	dsn := os.Getenv(EnvPostgresReplicaDSN)
	return dsn, dsn != ""
}

// RequirePostgresDSN returns the PostgreSQL DSN or skips the test.
func RequirePostgresDSN(t testing.TB) string {
	t.Helper()

	dsn, ok := PostgresDSN()
	if !ok {
		t.Skipf("%s is not set, skipping PostgreSQL test", EnvPostgresDSN)
	}

	return dsn
}

// SQLiteInMemoryDSN returns the DSN of a new, private in-memory SQLite database.
// The database lives as long as one connection to it stays open.
func SQLiteInMemoryDSN() string {
	return fmt.Sprintf("file:tablestore_test_%d?mode=memory&cache=shared", sqliteDatabaseCounter.Add(1))
}
