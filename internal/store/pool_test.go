package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

func newMockPool(t *testing.T, open Opener) (*Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	pool, err := NewPool(db, PoolOptions{Open: open, Logger: quietLogger()})
	require.NoError(t, err)
	return pool, mock
}

func TestPool_ReconnectKeepsHealthyHandle(t *testing.T) {
	pool, mock := newMockPool(t, func(ctx context.Context) (*sql.DB, error) {
		t.Fatal("opener must not be called for a healthy handle")
		return nil, nil
	})
	original := pool.DB()
	mock.ExpectPing()

	require.NoError(t, pool.Reconnect(context.Background(), 0))

	assert.Same(t, original, pool.DB())
	assert.Zero(t, pool.Generation())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPool_ReconnectReplacesUnhealthyHandle(t *testing.T) {
	fresh, freshMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	freshMock.ExpectPing()

	opened := 0
	pool, mock := newMockPool(t, func(ctx context.Context) (*sql.DB, error) {
		opened++
		return fresh, nil
	})
	mock.ExpectPing().WillReturnError(errRefused)
	mock.ExpectClose()

	require.NoError(t, pool.Reconnect(context.Background(), 0))

	assert.Equal(t, 1, opened)
	assert.Same(t, fresh, pool.DB())
	assert.Equal(t, uint64(1), pool.Generation())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, freshMock.ExpectationsWereMet())
}

func TestPool_ReconnectSkipsWhenAlreadyReplaced(t *testing.T) {
	pool, mock := newMockPool(t, func(ctx context.Context) (*sql.DB, error) {
		t.Fatal("opener must not be called twice for the same failure")
		return nil, nil
	})
	pool.gen = 4

	require.NoError(t, pool.Reconnect(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPool_ReconnectOpenFailureKeepsOldHandle(t *testing.T) {
	pool, mock := newMockPool(t, func(ctx context.Context) (*sql.DB, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	original := pool.DB()
	mock.ExpectPing().WillReturnError(errRefused)

	err := pool.Reconnect(context.Background(), 0)

	require.Error(t, err)
	assert.Same(t, original, pool.DB())
	assert.Zero(t, pool.Generation())
}

func TestPool_ReconnectWithoutOpener(t *testing.T) {
	pool, mock := newMockPool(t, nil)
	mock.ExpectPing().WillReturnError(errRefused)

	assert.ErrorIs(t, pool.Reconnect(context.Background(), 0), ErrReconnectUnsupported)
}

func TestPool_DoRetriesOnHandleReplacedMidOperation(t *testing.T) {
	fresh, freshMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	freshMock.ExpectPing()
	freshMock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))

	pool, mock := newMockPool(t, func(ctx context.Context) (*sql.DB, error) {
		return fresh, nil
	})
	pool.Retrier().WithSleep(func(context.Context, time.Duration) error { return nil })
	mock.ExpectPing().WillReturnError(errRefused)
	mock.ExpectClose()

	calls := 0
	err = pool.Do(context.Background(), func(ctx context.Context) error {
		calls++
		db := pool.DB()
		if calls == 1 {
			require.NoError(t, pool.Reconnect(ctx, pool.Generation()))
		}
		_, err := db.ExecContext(ctx, "UPDATE users SET email_verified = true")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Same(t, fresh, pool.DB())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, freshMock.ExpectationsWereMet())
}

func TestPool_TxCommits(t *testing.T) {
	pool, mock := newMockPool(t, nil)
	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+notifications`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := pool.Tx(context.Background(), func(ctx context.Context, q Querier) error {
		_, err := q.ExecContext(ctx, `DELETE FROM notifications`)
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPool_TxRollsBackOnError(t *testing.T) {
	pool, mock := newMockPool(t, nil)
	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")

	err := pool.Tx(context.Background(), func(ctx context.Context, q Querier) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPool_TxRollsBackOnPanic(t *testing.T) {
	pool, mock := newMockPool(t, nil)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = pool.Tx(context.Background(), func(ctx context.Context, q Querier) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPool_ORMWithoutDialector(t *testing.T) {
	pool, _ := newMockPool(t, nil)
	_, err := pool.ORM(context.Background())
	assert.Error(t, err)
}

func TestPool_Migrate(t *testing.T) {
	pool, _ := newMockPool(t, nil)

	var gotDir string
	orig := gooseUp
	gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		assert.Same(t, pool.DB(), db)
		return nil
	}
	defer func() { gooseUp = orig }()

	require.NoError(t, pool.Migrate(context.Background()))
	assert.Equal(t, ".", gotDir)
}

func TestPool_CheckSchemaReportsMissingTable(t *testing.T) {
	pool, mock := newMockPool(t, nil)
	q := `(?s)^\s*SELECT\s+table_name\s+FROM\s+information_schema\.tables`
	mock.ExpectQuery(q).WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
	mock.ExpectQuery(q).WithArgs("user_password").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	err := pool.CheckSchema(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing table "user_password"`)
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "bliss", Password: "p@ss", DBName: "blisslearn", SSLMode: "disable"}
	assert.Equal(t, "postgres://bliss:p%40ss@db:5432/blisslearn?sslmode=disable", cfg.DSN())

	cfg.URL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DSN())
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, quietLogger())
	assert.Error(t, err)
}
