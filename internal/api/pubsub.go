package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizluv/internal/domain"
	"github.com/victornm/quizluv/internal/leaderboard"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Leaderboard struct {
		Category string             `json:"category,omitempty"`
		Entries  []LeaderboardEntry `json:"entries"`
	}
)

// PublishLeaderboardRecorded pushes the refreshed overall leaderboard and the
// refreshed leaderboard of the entry's category to their channels.
func (a *API) PublishLeaderboardRecorded(ctx context.Context, e domain.EventLeaderboardRecorded) error {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, category := range []string{"", e.Entry.Category} {
		eg.Go(func() error {
			entries, err := a.ls.List(ctx, leaderboard.ListRequest{Category: category})
			if err != nil {
				return fmt.Errorf("pubsub: list leaderboard %q: %w", category, err)
			}

			return a.publishNotification(ctx, a.leaderboardChannel(category), e.Name(), Leaderboard{
				Category: category,
				Entries:  toLeaderboard(entries),
			})
		})
	}

	return eg.Wait()
}

func (a *API) leaderboardChannel(category string) string {
	if category == "" {
		return fmt.Sprintf("%s:leaderboard", a.prefix)
	}
	return fmt.Sprintf("%s:leaderboard:%s", a.prefix, category)
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}
