package database

import (
	"database/sql"
	"strings"

	// tell sql to use sqlite
	_ "modernc.org/sqlite"
)

type sqliteDialect struct{}

func (sqliteDialect) driverName() string { return "sqlite" }

// dsn adds a busy timeout and WAL journaling unless the caller passed pragmas
func (sqliteDialect) dsn(raw string) string {
	if strings.Contains(raw, "_pragma=") {
		return raw
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (sqliteDialect) placeholders(query string) string { return query }

// sqlite allows a single writer; one connection avoids SQLITE_BUSY between our own goroutines
func (sqliteDialect) configure(db *sql.DB) {
	db.SetMaxOpenConns(1)
}

func (sqliteDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			ts TEXT NOT NULL,
			query TEXT NOT NULL,
			title TEXT,
			url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS stats (
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (user_id, title)
		)`,
	}
}
