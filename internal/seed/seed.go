// Package seed loads quiz fixtures into the database and repairs rows that
// break the schema's implicit invariants.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/victornm/quizluv/internal/domain"
	"github.com/victornm/quizluv/internal/storage"
)

//go:embed fixtures/default.yaml
var defaultFixture []byte

type (
	Fixture struct {
		Quizzes     []Quiz  `yaml:"quizzes"`
		Leaderboard []Entry `yaml:"leaderboard,omitempty"`
	}

	Quiz struct {
		Name      string     `yaml:"name"`
		Questions []Question `yaml:"questions"`
	}

	Question struct {
		Text    string   `yaml:"text"`
		Options []Option `yaml:"options"`
	}

	Option struct {
		Text    string `yaml:"text"`
		Correct bool   `yaml:"correct,omitempty"`
	}

	Entry struct {
		Name     string `yaml:"name"`
		Category string `yaml:"category"`
		Score    int    `yaml:"score"`
		Time     int    `yaml:"time"`
	}
)

// Load decodes and validates a YAML fixture.
func Load(r io.Reader) (Fixture, error) {
	var f Fixture

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}

	if err := f.Validate(); err != nil {
		return Fixture{}, err
	}

	return f, nil
}

// Default returns the built-in fixture. Its first quiz is "General Knowledge"
// whose correct letters are A, B, B.
func Default() Fixture {
	f, err := Load(bytes.NewReader(defaultFixture))
	if err != nil {
		panic(fmt.Sprintf("seed: invalid default fixture: %v", err))
	}
	return f
}

// Validate reports every question that does not have exactly four non-blank
// options with exactly one marked correct.
func (f Fixture) Validate() error {
	var errs []error

	for i, q := range f.Quizzes {
		if blank(q.Name) {
			errs = append(errs, fmt.Errorf("quizzes[%d]: name is blank", i))
		}

		for j, qn := range q.Questions {
			path := fmt.Sprintf("quizzes[%d].questions[%d]", i, j)
			if blank(qn.Text) {
				errs = append(errs, fmt.Errorf("%s: text is blank", path))
			}

			if len(qn.Options) != domain.OptionsPerQuestion {
				errs = append(errs, fmt.Errorf("%s: want %d options, got %d", path, domain.OptionsPerQuestion, len(qn.Options)))
			}

			correct := 0
			for k, o := range qn.Options {
				if blank(o.Text) {
					errs = append(errs, fmt.Errorf("%s.options[%d]: text is blank", path, k))
				}
				if o.Correct {
					correct++
				}
			}
			if correct != 1 {
				errs = append(errs, fmt.Errorf("%s: want exactly 1 correct option, got %d", path, correct))
			}
		}
	}

	for i, e := range f.Leaderboard {
		if blank(e.Name) || blank(e.Category) || e.Score < 0 || e.Time < 0 {
			errs = append(errs, fmt.Errorf("leaderboard[%d]: invalid entry", i))
		}
	}

	return errors.Join(errs...)
}

// Apply replaces every quiz with the fixture's content in a single
// transaction and resets the id sequences, so the first quiz gets id 1.
// Leaderboard entries are appended; existing ones are never removed.
func Apply(ctx context.Context, db *sql.DB, f Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}

	err := storage.WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM options`,
			`DELETE FROM questions`,
			`DELETE FROM quizzes`,
			`DELETE FROM sqlite_sequence WHERE name IN ('options', 'questions', 'quizzes')`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear quizzes: %w", err)
			}
		}

		for _, q := range f.Quizzes {
			if err := insertQuiz(ctx, tx, q); err != nil {
				return err
			}
		}

		now := time.Now().UTC().Format(time.DateTime)
		for _, e := range f.Leaderboard {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO leaderboard (name, category, score, time_seconds, created_at) VALUES (?, ?, ?, ?, ?)`,
				strings.TrimSpace(e.Name), strings.TrimSpace(e.Category), e.Score, e.Time, now)
			if err != nil {
				return fmt.Errorf("insert leaderboard entry: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	slog.InfoContext(ctx, "seed: fixture applied", "quizzes", len(f.Quizzes), "leaderboard", len(f.Leaderboard))
	return nil
}

func insertQuiz(ctx context.Context, tx *sql.Tx, q Quiz) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO quizzes (name) VALUES (?)`, q.Name)
	if err != nil {
		return fmt.Errorf("insert quiz %q: %w", q.Name, err)
	}
	quizID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, qn := range q.Questions {
		res, err := tx.ExecContext(ctx, `INSERT INTO questions (quiz_id, text) VALUES (?, ?)`, quizID, qn.Text)
		if err != nil {
			return fmt.Errorf("insert question %q: %w", qn.Text, err)
		}
		questionID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, o := range qn.Options {
			correct := 0
			if o.Correct {
				correct = 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO options (question_id, text, is_correct) VALUES (?, ?, ?)`,
				questionID, o.Text, correct); err != nil {
				return fmt.Errorf("insert option %q: %w", o.Text, err)
			}
		}
	}

	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
