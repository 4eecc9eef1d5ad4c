package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/victornm/quizluv/internal/domain"
	"github.com/victornm/quizluv/internal/errors"
	"github.com/victornm/quizluv/internal/event"
)

// MaxEntries caps every leaderboard listing.
const MaxEntries = 100

type Config struct {
	EventBus *event.Bus
	DB       *sql.DB
	// Now stamps new entries. Defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	eb  *event.Bus
	db  *sql.DB
	now func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		eb:  c.EventBus,
		db:  c.DB,
		now: c.Now,
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

type RecordRequest struct {
	Name     string
	Category string
	Score    int
	Time     int
}

func (r RecordRequest) validate() error {
	var details []errors.Detail

	if strings.TrimSpace(r.Name) == "" {
		details = append(details, errors.Detail{Field: "name", Rule: "required"})
	}
	if strings.TrimSpace(r.Category) == "" {
		details = append(details, errors.Detail{Field: "category", Rule: "required"})
	}
	if r.Score < 0 {
		details = append(details, errors.Detail{Field: "score", Rule: "min", Param: "0"})
	}
	if r.Time < 0 {
		details = append(details, errors.Detail{Field: "time", Rule: "min", Param: "0"})
	}

	if len(details) > 0 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("Validation error"),
			errors.WithDetails(details...))
	}

	return nil
}

// Record appends a completed attempt to the leaderboard. Entries are never
// updated or deleted afterwards.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*domain.LeaderboardEntry, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	e := domain.LeaderboardEntry{
		Name:      strings.TrimSpace(req.Name),
		Category:  strings.TrimSpace(req.Category),
		Score:     req.Score,
		Time:      req.Time,
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}

	const stmt = `
INSERT INTO leaderboard (name, category, score, time_seconds, created_at)
VALUES (?, ?, ?, ?, ?);`

	if _, err := s.db.ExecContext(ctx, stmt, e.Name, e.Category, e.Score, e.Time, e.CreatedAt.Format(time.DateTime)); err != nil {
		return nil, fmt.Errorf("insert leaderboard entry: %w", err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardRecorded{
		Entry: e,
	})

	return &e, nil
}

type ListRequest struct {
	// Category restricts the listing when set.
	Category string
	// Limit defaults to and is capped at MaxEntries.
	Limit int
}

// List returns the best entries ranked by score descending, then time
// ascending, then insertion order.
func (s *Service) List(ctx context.Context, req ListRequest) ([]domain.LeaderboardEntry, error) {
	limit := req.Limit
	if limit <= 0 || limit > MaxEntries {
		limit = MaxEntries
	}

	const stmt = `
SELECT name, category, score, time_seconds, CAST(strftime('%s', created_at) AS INTEGER)
FROM leaderboard
WHERE ? = '' OR category = ?
ORDER BY score DESC, time_seconds ASC, id ASC
LIMIT ?;`

	rows, err := s.db.QueryContext(ctx, stmt, req.Category, req.Category, limit)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var (
			e       domain.LeaderboardEntry
			created int64
		)
		if err := rows.Scan(&e.Name, &e.Category, &e.Score, &e.Time, &created); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}

	return entries, nil
}
