package leaderboard

import (
	"cmp"
	"slices"
	"strings"

	"github.com/victornm/quizluv/internal/domain"
)

// SameAttempt reports whether two entries describe the same attempt, comparing
// name, category, score and time. The creation time is ignored.
func SameAttempt(a, b domain.LeaderboardEntry) bool {
	return a.Name == b.Name &&
		a.Category == b.Category &&
		a.Score == b.Score &&
		a.Time == b.Time
}

// Merge combines the stored leaderboard with a locally cached one. Remote
// entries come first, malformed local entries are dropped, and only the first
// of every group of equal entries is kept. The result is sorted by score
// descending then time ascending; ties keep their merged order.
func Merge(local, remote []domain.LeaderboardEntry, equal func(a, b domain.LeaderboardEntry) bool) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, 0, len(remote)+len(local))

	add := func(e domain.LeaderboardEntry) {
		if slices.ContainsFunc(out, func(x domain.LeaderboardEntry) bool { return equal(x, e) }) {
			return
		}
		out = append(out, e)
	}

	for _, e := range remote {
		add(e)
	}

	for _, e := range local {
		if strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.Category) == "" || e.Score < 0 || e.Time < 0 {
			continue
		}
		add(e)
	}

	slices.SortStableFunc(out, func(a, b domain.LeaderboardEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})

	return out
}
