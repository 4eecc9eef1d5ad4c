package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/victornm/quizluv/internal/storage"
)

// Report counts the rows touched by Cleanup.
type Report struct {
	Quizzes      int64
	Questions    int64
	Options      int64
	CorrectFlags int64
}

// Cleanup deletes blank quizzes, blank or orphan questions and options, and
// clamps option correct flags to 0 or 1. It runs in a single transaction.
func Cleanup(ctx context.Context, db *sql.DB) (Report, error) {
	var r Report

	steps := []struct {
		stmt     string
		affected *int64
	}{
		{
			stmt:     `DELETE FROM quizzes WHERE name IS NULL OR TRIM(name) = ''`,
			affected: &r.Quizzes,
		},
		{
			stmt: `DELETE FROM questions
WHERE text IS NULL OR TRIM(text) = ''
   OR quiz_id NOT IN (SELECT id FROM quizzes)`,
			affected: &r.Questions,
		},
		{
			stmt: `DELETE FROM options
WHERE text IS NULL OR TRIM(text) = ''
   OR question_id NOT IN (SELECT id FROM questions)`,
			affected: &r.Options,
		},
		{
			stmt:     `UPDATE options SET is_correct = 0 WHERE is_correct NOT IN (0, 1)`,
			affected: &r.CorrectFlags,
		},
	}

	err := storage.WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, s := range steps {
			res, err := tx.ExecContext(ctx, s.stmt)
			if err != nil {
				return err
			}
			if *s.affected, err = res.RowsAffected(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("cleanup: %w", err)
	}

	slog.InfoContext(ctx, "seed: cleanup completed",
		"quizzes", r.Quizzes,
		"questions", r.Questions,
		"options", r.Options,
		"correct_flags", r.CorrectFlags,
	)
	return r, nil
}
