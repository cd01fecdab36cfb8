package database

import (
	"errors"
	"fmt"
	"strings"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// Config holds database configuration
type Config struct {
	Driver string
	// DSN is a file path for sqlite and a connection URL for postgres
	DSN string
}

func (c Config) dialect() (dialect, error) {
	switch strings.ToLower(c.Driver) {
	case DriverSQLite, "":
		return sqliteDialect{}, nil
	case DriverPostgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, c.Driver)
	}
}
