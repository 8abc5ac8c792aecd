package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	_, err = database.Exec(`CREATE TABLE items (id VARCHAR(36) PRIMARY KEY, name TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)
	return database
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
		_, err := Exec(ctx, tx, `INSERT INTO items (id, name) VALUES (?, ?)`, "1", "a")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, Get(ctx, database, &count, `SELECT COUNT(*) FROM items`))
	assert.Equal(t, 1, count)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
		if _, err := Exec(ctx, tx, `INSERT INTO items (id, name) VALUES (?, ?)`, "1", "a"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, Get(ctx, database, &count, `SELECT COUNT(*) FROM items`))
	assert.Zero(t, count)
}

func TestIsUniqueViolation(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	_, err := Exec(ctx, database, `INSERT INTO items (id, name) VALUES (?, ?)`, "1", "a")
	require.NoError(t, err)
	_, err = Exec(ctx, database, `INSERT INTO items (id, name) VALUES (?, ?)`, "2", "a")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestExecOne(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	_, err := Exec(ctx, database, `INSERT INTO items (id, name) VALUES (?, ?)`, "1", "a")
	require.NoError(t, err)

	ok, err := ExecOne(ctx, database, `UPDATE items SET name = ? WHERE id = ?`, "b", "1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ExecOne(ctx, database, `UPDATE items SET name = ? WHERE id = ?`, "c", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
