package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store/migrations"
)

// RequiredTables must exist before the server starts.
var RequiredTables = []string{
	"users",
	"user_password",
	"user_identities",
	"sessions",
	"verification_tokens",
	"notifications",
	"courses",
	"course_progress",
	"certifications",
	"learner_profiles",
}

// gooseUp is swapped in tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func (p *Pool) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return p.Do(ctx, func(ctx context.Context) error {
		return gooseUp(ctx, p.DB(), ".")
	})
}

// CheckSchema reports the first required table that is missing.
func (p *Pool) CheckSchema(ctx context.Context) error {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`
	for _, table := range RequiredTables {
		var name string
		err := p.Do(ctx, func(ctx context.Context) error {
			return p.DB().QueryRowContext(ctx, query, table).Scan(&name)
		})
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("missing table %q: run migrations first", table)
		}
		if err != nil {
			return fmt.Errorf("check schema: %w", err)
		}
	}
	return nil
}
