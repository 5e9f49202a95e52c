package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
)

// execAffected runs a write statement through the pool's retry policy and
// returns the number of rows it touched.
func execAffected(ctx context.Context, pool *store.Pool, query string, args ...any) (int64, error) {
	return store.Query(ctx, pool, func(ctx context.Context) (int64, error) {
		res, err := pool.DB().ExecContext(ctx, query, args...)
		return rowsAffected(res, err)
	})
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// requireRow turns "zero rows affected" into notFound.
func requireRow(n int64, err error, notFound error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// withORM runs fn on a gorm session over the pool's current handle, retrying
// transient failures like the raw SQL repositories do.
func withORM(ctx context.Context, pool *store.Pool, fn func(db *gorm.DB) error) error {
	return pool.Do(ctx, func(ctx context.Context) error {
		db, err := pool.ORM(ctx)
		if err != nil {
			return err
		}
		return fn(db)
	})
}
