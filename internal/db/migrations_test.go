package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMigrationsAreIdempotent asserts re-running migrations on an already
// migrated database is a no-op rather than an error.
func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	dbConn, err := OpenSQLite(filepath.Join(t.TempDir(), "critic.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbConn.Close())
	})

	require.NoError(t, ApplyMigrations(dbConn, TargetLatest))
	require.NoError(t, ApplyMigrations(dbConn, TargetLatest))
}

// TestMigrationsCreateSchema asserts the expected tables exist after a
// fresh migration. The full-text index is created outside the migration
// path, so it is only present when the sqlite build carries FTS5.
func TestMigrationsCreateSchema(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	tables := []string{"documents", "selector_state", "reviews"}
	if store.searchReady {
		tables = append(tables, "reviews_fts")
	}

	for _, table := range tables {
		var name string
		err := store.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE name = ?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}
