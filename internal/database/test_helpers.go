package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// GetTestDSN returns the postgres URL used by integration tests, empty when unset
func GetTestDSN() string {
	return os.Getenv("TEST_DATABASE_URL")
}

// NewTestStore opens an initialised sqlite store in a temp directory
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	s, err := Open(Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "bot.db"),
	})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init test store: %v", err)
	}
	return s
}
