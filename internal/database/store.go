package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// dialect captures the few places where sqlite and postgres disagree
type dialect interface {
	driverName() string
	dsn(raw string) string
	schema() []string
	// placeholders rewrites ? markers for the driver
	placeholders(query string) string
	configure(db *sql.DB)
}

// Store persists per-user query history and title statistics
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the configured database. Call Init before use.
func Open(cfg Config) (*Store, error) {
	d, err := cfg.dialect()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName(), d.dsn(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	d.configure(db)

	return &Store{db: db, dialect: d}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Init creates the tables if they do not exist yet
func (s *Store) Init(ctx context.Context) error {
	for _, query := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (s *Store) q(query string) string {
	return s.dialect.placeholders(query)
}

// rebindDollar turns ? markers into $1, $2, ...
func rebindDollar(query string) string {
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
