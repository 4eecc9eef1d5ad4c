// Package storagetest provides migrated throwaway databases for tests.
package storagetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/quizluv/internal/storage"
)

// NewDB returns a migrated database in a temporary directory, closed on test cleanup.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()

	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Config{Path: filepath.Join(t.TempDir(), "quiz.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, storage.Migrate(ctx, db))
	return db
}
