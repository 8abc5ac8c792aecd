package migrations

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"fitcoach-backend-go/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_EmbeddedSchemaIsIdempotent(t *testing.T) {
	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, database))
	require.NoError(t, Apply(ctx, database))

	var versions []int
	require.NoError(t, db.Select(ctx, database, &versions, `SELECT version FROM schema_migrations ORDER BY version`))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, versions)

	var exercises int
	require.NoError(t, db.Get(ctx, database, &exercises, `SELECT COUNT(*) FROM exercises`))
	assert.Equal(t, 6, exercises)
}

func TestApplyFS_OrdersByVersionNumber(t *testing.T) {
	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/V10__add_col.sql": {Data: []byte("ALTER TABLE t ADD COLUMN b TEXT;\n")},
		"m/V2__create.sql":   {Data: []byte("-- base table\nCREATE TABLE t (a TEXT);\n")},
		"m/README.md":        {Data: []byte("ignored")},
	}
	require.NoError(t, ApplyFS(ctx, database, fsys, "m"))

	_, err = database.Exec(`INSERT INTO t (a, b) VALUES ('x', 'y')`)
	require.NoError(t, err)
}

func TestListMigrations_RejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{"m/create.sql": {Data: []byte("SELECT 1;")}}
	_, err := listMigrations(fsys, "m")
	require.Error(t, err)

	fsys = fstest.MapFS{
		"m/V1__a.sql": {Data: []byte("SELECT 1;")},
		"m/V1__b.sql": {Data: []byte("SELECT 1;")},
	}
	_, err = listMigrations(fsys, "m")
	require.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- comment\nCREATE TABLE a (x INT);\n\nINSERT INTO a VALUES (1)\n  ;\nSELECT 1")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "INSERT INTO a VALUES (1)", "SELECT 1"}, stmts)
}
