package repository

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMockPool returns a pool over sqlmock with a regexp query matcher.
func newMockPool(t *testing.T) (*store.Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool, err := store.NewPool(db, store.PoolOptions{Logger: quietLogger()})
	require.NoError(t, err)
	return pool, mock
}

const usersTableSQLite = `
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	onboarding_completed BOOLEAN NOT NULL DEFAULT 0,
	updated_at DATETIME,
	deleted_at DATETIME
)`

// newSQLitePool returns a pool over an in-memory SQLite database with the
// gorm-managed tables created.
func newSQLitePool(t *testing.T) *store.Pool {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	pool, err := store.NewPool(db, store.PoolOptions{
		Dialector: func(db *sql.DB) gorm.Dialector { return &sqlite.Dialector{Conn: db} },
		Logger:    quietLogger(),
	})
	require.NoError(t, err)

	_, err = db.Exec(usersTableSQLite)
	require.NoError(t, err)

	orm, err := pool.ORM(t.Context())
	require.NoError(t, err)
	require.NoError(t, orm.AutoMigrate(
		&notificationRow{},
		&courseRow{},
		&progressRow{},
		&certificationRow{},
		&learnerProfileRow{},
	))
	return pool
}

func stringPtr(s string) *string {
	return &s
}
