// Package cli wires the quizluv commands.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/victornm/quizluv/internal/config"
	"github.com/victornm/quizluv/internal/server"
	"github.com/victornm/quizluv/internal/storage"
	"github.com/victornm/quizluv/internal/telemetry"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

type app struct {
	configPath string
	cfg        server.Config
	logCloser  io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "quizluv",
		Short:        "Quiz server with grading and a leaderboard",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("CONFIG_PATH"),
		"path to YAML config, defaults and environment variables are used when empty")

	cmd.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newCleanupCmd(a),
		newLeaderboardCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	a.cfg = server.DefaultConfig()
	if err := config.Load(a.configPath, &a.cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	_, closer, err := telemetry.SetupLogger(a.cfg.Log)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	a.logCloser = closer

	return nil
}

// openDB opens and migrates the configured database.
func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := storage.Open(ctx, storage.Config{Path: a.cfg.SQLite.Path})
	if err != nil {
		return nil, err
	}

	if err := storage.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
