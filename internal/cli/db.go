package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/victornm/quizluv/internal/seed"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace all quizzes with a fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := seed.Default()
			if file != "" {
				r, err := os.Open(file)
				if err != nil {
					return err
				}
				defer r.Close()

				if f, err = seed.Load(r); err != nil {
					return fmt.Errorf("fixture %s: %w", file, err)
				}
			}

			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := seed.Apply(cmd.Context(), db, f); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d quizzes.\n", len(f.Quizzes))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML fixture, the built-in one is used when empty")
	return cmd
}

func newCleanupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove blank and orphan rows and normalize correct flags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			r, err := seed.Cleanup(cmd.Context(), db)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d quizzes, %d questions, %d options. Reset %d correct flags.\n",
				r.Quizzes, r.Questions, r.Options, r.CorrectFlags)
			return nil
		},
	}
}
