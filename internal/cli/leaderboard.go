package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/victornm/quizluv/internal/domain"
	"github.com/victornm/quizluv/internal/event"
	"github.com/victornm/quizluv/internal/leaderboard"
)

func newLeaderboardCmd(a *app) *cobra.Command {
	var (
		local    string
		category string
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the leaderboard, optionally merged with a locally cached copy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			eb := event.NewBus()
			defer eb.Stop()

			remote, err := leaderboard.NewService(leaderboard.Config{EventBus: eb, DB: db}).
				List(cmd.Context(), leaderboard.ListRequest{Category: category})
			if err != nil {
				return err
			}

			entries := remote
			if local != "" {
				cached, err := readLocal(local)
				if err != nil {
					return err
				}
				entries = leaderboard.Merge(cached, remote, leaderboard.SameAttempt)
			}

			return printLeaderboard(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().StringVar(&local, "local", "", "JSON file with cached entries to merge in")
	cmd.Flags().StringVar(&category, "category", "", "only list entries of this category")
	return cmd
}

// readLocal reads a JSON array of {name, category, score, time} objects.
// Elements that do not decode are skipped.
func readLocal(path string) ([]domain.LeaderboardEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("local leaderboard %s: %w", path, err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(raw))
	for _, r := range raw {
		var e struct {
			Name     string `json:"name"`
			Category string `json:"category"`
			Score    *int   `json:"score"`
			Time     *int   `json:"time"`
		}
		if err := json.Unmarshal(r, &e); err != nil || e.Score == nil || e.Time == nil {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			Name:     e.Name,
			Category: e.Category,
			Score:    *e.Score,
			Time:     *e.Time,
		})
	}

	return entries, nil
}

func printLeaderboard(w io.Writer, entries []domain.LeaderboardEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tCATEGORY\tSCORE\tTIME")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%ds\n", i+1, e.Name, e.Category, e.Score, e.Time)
	}
	return tw.Flush()
}
