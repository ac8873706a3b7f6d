package migrate

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApply_SQLite_CreatesSchemaOnce(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	require.NoError(t, Apply(ctx, db, SQLite))
	require.NoError(t, Apply(ctx, db, SQLite), "second run must be a no-op")

	for _, table := range []string{"users", "notes", "auth_limiter"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		require.Equal(t, table, name)
	}
}

func TestApply_UnknownDialect(t *testing.T) {
	db := openMemory(t)
	require.Error(t, Apply(context.Background(), db, Dialect("oracle")))
}
