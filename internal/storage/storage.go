// Package storage opens the SQLite database that holds quizzes and the
// leaderboard, and applies its schema migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/migrate"
	_ "modernc.org/sqlite"

	"github.com/victornm/quizluv/internal/storage/migrations"
)

type Config struct {
	Path string
}

// Open opens the database file at c.Path, creating its parent directory when missing.
func Open(ctx context.Context, c Config) (*sql.DB, error) {
	if dir := filepath.Dir(c.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", c.Path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping database: %w", err), db.Close())
	}

	slog.InfoContext(ctx, "storage: database opened", "path", c.Path)
	return db, nil
}

// Migrate applies every pending migration. Running it on an up to date
// database is a no-op.
func Migrate(ctx context.Context, db *sql.DB) error {
	m := migrate.NewMigrator(bun.NewDB(db, sqlitedialect.New()), migrations.Migrations)

	if err := m.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	group, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if group == nil || group.IsZero() {
		slog.InfoContext(ctx, "storage: no new migrations")
		return nil
	}

	slog.InfoContext(ctx, "storage: migrated", "group", group.String())
	return nil
}

// WithTx runs fn inside a transaction, committing when fn succeeds and rolling
// back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
