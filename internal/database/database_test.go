package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/monthroster/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Config{Level: "error", Format: "json", Output: "discard"})
	os.Exit(m.Run())
}

func open(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.ExecContext(context.Background(), `CREATE TABLE runs (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM runs`).Scan(&n))
	return n
}

func TestOpen(t *testing.T) {
	db := open(t)
	assert.NoError(t, db.Health(context.Background()))

	_, err := Open("unknown-driver", "x")
	assert.Error(t, err)
}

func TestTransaction(t *testing.T) {
	db := open(t)
	ctx := context.Background()

	require.NoError(t, db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO runs (id) VALUES ('run-1')`)
		return err
	}))
	assert.Equal(t, 1, count(t, db))

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id) VALUES ('run-2')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count(t, db), "出错时回滚")

	assert.Panics(t, func() {
		_ = db.Transaction(ctx, func(tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO runs (id) VALUES ('run-3')`)
			panic("中途崩溃")
		})
	})
	assert.Equal(t, 1, count(t, db), "panic 时回滚")
}

func TestTruncateQuery(t *testing.T) {
	assert.Equal(t, "SELECT 1", truncateQuery("SELECT 1"))
	long := strings.Repeat("x", 250)
	assert.Len(t, truncateQuery(long), 203)
}
