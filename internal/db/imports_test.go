package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const importsTable = `CREATE TABLE latest_dataset_imports (
    db_name     TEXT,
    imported_at TIMESTAMP NOT NULL
)`

func TestResolveLatestDatasetDBName(t *testing.T) {
	ctx := context.Background()
	conn, err := OpenSQLite(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	defer conn.Close()

	for _, s := range []string{
		importsTable,
		`INSERT INTO latest_dataset_imports VALUES ('coimbatore_20250101', '2025-01-01 04:00:00')`,
		`INSERT INTO latest_dataset_imports VALUES ('Coimbatore_20250301', '2025-03-01 04:00:00')`,
		`INSERT INTO latest_dataset_imports VALUES ('chennai_20250401', '2025-04-01 04:00:00')`,
		`INSERT INTO latest_dataset_imports VALUES ('', '2025-05-01 04:00:00')`,
	} {
		_, err := conn.ExecContext(ctx, s)
		require.NoError(t, err)
	}

	name, err := ResolveLatestDatasetDBName(ctx, conn, " coimbatore ")
	require.NoError(t, err)
	assert.Equal(t, "Coimbatore_20250301", name, "newest import wins and matching ignores case")

	name, err = ResolveLatestDatasetDBName(ctx, conn, "CHENNAI")
	require.NoError(t, err)
	assert.Equal(t, "chennai_20250401", name)

	_, err = ResolveLatestDatasetDBName(ctx, conn, "madurai")
	assert.ErrorContains(t, err, "no dataset database")

	_, err = ResolveLatestDatasetDBName(ctx, conn, "  ")
	assert.Error(t, err)
}

// Runs against a real Postgres cluster when PG_DSN is set; the table is
// created inside a transaction that is rolled back.
func TestResolveLatestDatasetDBNamePostgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set - skipping postgres test")
	}
	ctx := context.Background()
	conn, err := Open(dsn)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, Ping(ctx, conn))

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `CREATE TEMP TABLE latest_dataset_imports (db_name TEXT, imported_at TIMESTAMPTZ NOT NULL) ON COMMIT DROP`)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO latest_dataset_imports VALUES
		('coimbatore_20250101', now() - interval '2 days'),
		('coimbatore_20250301', now())`)
	require.NoError(t, err)

	name, err := ResolveLatestDatasetDBName(ctx, tx, "Coimbatore")
	require.NoError(t, err)
	assert.Equal(t, "coimbatore_20250301", name)
}
