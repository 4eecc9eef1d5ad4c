package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/victornm/quizluv/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API and admin servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
			defer stop()

			s, err := server.Init(ctx, a.cfg)
			if err != nil {
				return err
			}

			errc := make(chan error, 1)
			go func() { errc <- s.Start() }()

			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "server: shutdown signal received")
			case err = <-errc:
			}

			s.Shutdown()
			return err
		},
	}
}
