package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type postgresDialect struct{}

func (postgresDialect) driverName() string { return "postgres" }

func (postgresDialect) dsn(raw string) string { return raw }

func (postgresDialect) placeholders(query string) string { return rebindDollar(query) }

func (postgresDialect) configure(db *sql.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

func (postgresDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			ts TEXT NOT NULL,
			query TEXT NOT NULL,
			title TEXT,
			url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS stats (
			user_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (user_id, title)
		)`,
	}
}
