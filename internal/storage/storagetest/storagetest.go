// Package storagetest opens migrated SQLite databases for tests.
package storagetest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/cuongbtq/launchloop/internal/storage"
	"github.com/cuongbtq/launchloop/shared/database"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// NewDB returns a migrated SQLite database in a temp dir, closed on cleanup
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Connect(database.DriverSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "launchloop.db")))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.Migrate(context.Background(), db, DiscardLogger()))
	return db
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
