// Package testdb opens throwaway migrated SQLite databases for tests.
package testdb

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MedTracker/internal/config"
)

// Logger returns a logger that discards its output.
func Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Open creates a migrated SQLite database in the test's temp dir. It is closed
// when the test ends.
func Open(t *testing.T) *config.Database {
	t.Helper()

	path := filepath.Join(t.TempDir(), "medtracker.db")
	db, err := config.NewDatabase(context.Background(), config.DriverSQLite, path, Logger())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}
