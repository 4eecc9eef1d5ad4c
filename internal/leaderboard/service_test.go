package leaderboard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizluv/internal/domain"
	"github.com/victornm/quizluv/internal/errors"
	"github.com/victornm/quizluv/internal/event"
	"github.com/victornm/quizluv/internal/leaderboard"
	"github.com/victornm/quizluv/internal/storage/storagetest"
)

var now = time.Date(2025, 3, 1, 12, 30, 45, 0, time.UTC)

func TestService_List(t *testing.T) {
	type (
		inputs struct {
			recorded []leaderboard.RecordRequest
			req      leaderboard.ListRequest
		}

		outputs struct {
			entries []domain.LeaderboardEntry
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should rank by score desc then time asc then insertion order": {
			arrange: func() inputs {
				return inputs{
					recorded: []leaderboard.RecordRequest{
						{Name: "slow", Category: "Math", Score: 3, Time: 90},
						{Name: "low", Category: "Math", Score: 1, Time: 5},
						{Name: "fast", Category: "Math", Score: 3, Time: 30},
						{Name: "fast-twin", Category: "Science", Score: 3, Time: 30},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				var names []string
				for _, e := range out.entries {
					names = append(names, e.Name)
				}
				assert.Equal(t, []string{"fast", "fast-twin", "slow", "low"}, names)
			},
		},

		"should filter by category": {
			arrange: func() inputs {
				return inputs{
					recorded: []leaderboard.RecordRequest{
						{Name: "a", Category: "Math", Score: 3, Time: 90},
						{Name: "b", Category: "Science", Score: 2, Time: 5},
					},
					req: leaderboard.ListRequest{Category: "Science"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.entries, 1)
				assert.Equal(t, "b", out.entries[0].Name)
			},
		},

		"should return an empty list when nothing was recorded": {
			arrange: func() inputs {
				return inputs{}
			},

			assert: func(t *testing.T, out outputs) {
				assert.NotNil(t, out.entries)
				assert.Empty(t, out.entries)
			},
		},

		"should cap the listing at 100 entries": {
			arrange: func() inputs {
				in := inputs{req: leaderboard.ListRequest{Limit: 1000}}
				for i := 0; i < 120; i++ {
					in.recorded = append(in.recorded, leaderboard.RecordRequest{Name: "p", Category: "Math", Score: i, Time: 1})
				}
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.entries, leaderboard.MaxEntries)
				assert.Equal(t, 119, out.entries[0].Score)
				assert.Equal(t, 20, out.entries[len(out.entries)-1].Score)
			},
		},

		"should honor a smaller limit": {
			arrange: func() inputs {
				return inputs{
					recorded: []leaderboard.RecordRequest{
						{Name: "a", Category: "Math", Score: 1, Time: 1},
						{Name: "b", Category: "Math", Score: 2, Time: 1},
					},
					req: leaderboard.ListRequest{Limit: 1},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.entries, 1)
				assert.Equal(t, "b", out.entries[0].Name)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := makeService(t, nil)
			in := tt.arrange()
			for _, r := range in.recorded {
				_, err := s.Record(context.Background(), r)
				require.NoError(t, err)
			}

			entries, err := s.List(context.Background(), in.req)
			require.NoError(t, err)
			tt.assert(t, outputs{entries: entries})
		})
	}
}

func TestService_Record(t *testing.T) {
	s := makeService(t, nil)

	got, err := s.Record(context.Background(), leaderboard.RecordRequest{Name: "  ann ", Category: "Math", Score: 4, Time: 61})
	require.NoError(t, err)

	want := domain.LeaderboardEntry{Name: "ann", Category: "Math", Score: 4, Time: 61, CreatedAt: now}
	assert.Equal(t, want, *got)

	entries, err := s.List(context.Background(), leaderboard.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, []domain.LeaderboardEntry{want}, entries)
}

func TestService_Record_Invalid(t *testing.T) {
	s := makeService(t, nil)

	_, err := s.Record(context.Background(), leaderboard.RecordRequest{Name: " ", Category: "", Score: -1, Time: -2})
	require.Error(t, err)

	e := errors.Convert(err)
	assert.Equal(t, errors.CodeInvalidArgument, e.Code)
	assert.Equal(t, "Validation error", e.Message)
	assert.Equal(t, []errors.Detail{
		{Field: "name", Rule: "required"},
		{Field: "category", Rule: "required"},
		{Field: "score", Rule: "min", Param: "0"},
		{Field: "time", Rule: "min", Param: "0"},
	}, e.Details)

	entries, err := s.List(context.Background(), leaderboard.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_Record_PublishesEvent(t *testing.T) {
	eb := event.NewBus()

	var (
		mu  sync.Mutex
		got []domain.EventLeaderboardRecorded
	)
	eb.Subscribe(domain.EventNameLeaderboardRecorded, func(_ context.Context, e event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(domain.EventLeaderboardRecorded))
		return nil
	})

	s := makeService(t, eb)
	entry, err := s.Record(context.Background(), leaderboard.RecordRequest{Name: "ann", Category: "Math", Score: 1, Time: 2})
	require.NoError(t, err)
	eb.Stop()

	require.Len(t, got, 1)
	assert.Equal(t, *entry, got[0].Entry)
}

func makeService(t *testing.T, eb *event.Bus) *leaderboard.Service {
	t.Helper()

	if eb == nil {
		eb = event.NewBus()
		t.Cleanup(eb.Stop)
	}

	return leaderboard.NewService(leaderboard.Config{
		EventBus: eb,
		DB:       storagetest.NewDB(t),
		Now:      func() time.Time { return now },
	})
}
