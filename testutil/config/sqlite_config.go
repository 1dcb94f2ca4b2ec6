package config

import (
	"database/sql"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

// SQLiteSQLDBConfig opens a new in-memory SQLite database as *sql.DB restricted to one connection,
// so the database lives until the DB is closed.
func SQLiteSQLDBConfig() *sql.DB {
	db, err := sql.Open("sqlite3", SQLiteInMemoryDSN())
	if err != nil {
		log.Fatal("Failed to open sqlite database, error: ", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db
}

// SQLiteSQLXConfig opens a new in-memory SQLite database as *sqlx.DB restricted to one connection.
func SQLiteSQLXConfig() *sqlx.DB {
	return sqlx.NewDb(SQLiteSQLDBConfig(), "sqlite3")
}
