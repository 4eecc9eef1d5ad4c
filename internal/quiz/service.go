package quiz

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/victornm/quizluv/internal/domain"
	"github.com/victornm/quizluv/internal/errors"
)

type Config struct {
	DB *sql.DB
}

type Service struct {
	db *sql.DB
}

func NewService(c Config) *Service {
	return &Service{
		db: c.DB,
	}
}

// KeyedQuestion is a stored question together with the correct flags of its
// options. It must never leave the server before the attempt is graded.
type KeyedQuestion struct {
	ID      int64
	Text    string
	Options []KeyedOption
}

type KeyedOption struct {
	ID        int64
	Text      string
	IsCorrect bool
}

// ParseQuizID parses a quiz id path parameter with JavaScript Number rules:
// surrounding whitespace is ignored, a blank string is 0, and 0x, 0o and 0b
// prefixes select a radix. Anything that is not a finite number is invalid. A
// finite number that is not an integer cannot name any quiz and yields NotFound.
func ParseQuizID(s string) (int64, error) {
	f, ok := parseNumber(s)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.InvalidArgument("Invalid quiz id")
	}

	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, errors.NotFound("Quiz not found")
	}

	return int64(f), nil
}

var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if stderrors.Is(err, strconv.ErrRange) {
				return math.MaxFloat64, true
			}
			return float64(n), err == nil && !strings.ContainsRune(s[2:], '_')
		}
	}

	if !decimalNumber.MatchString(s) {
		return 0, false
	}

	// Overflow yields ±Inf, like Number("1e400").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !stderrors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// GetQuiz returns a quiz with its questions and options in id order, without
// revealing which option is correct.
func (s *Service) GetQuiz(ctx context.Context, id int64) (*domain.Quiz, error) {
	q := domain.Quiz{ID: id}

	err := s.db.QueryRowContext(ctx, `SELECT name FROM quizzes WHERE id = ?`, id).Scan(&q.Name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("Quiz not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz %d: %w", id, err)
	}

	keyed, err := s.KeyedQuestions(ctx, id)
	if err != nil {
		return nil, err
	}

	q.Questions = make([]domain.Question, 0, len(keyed))
	for _, kq := range keyed {
		pq := domain.Question{
			ID:      kq.ID,
			QuizID:  id,
			Text:    kq.Text,
			Options: make([]domain.Option, 0, len(kq.Options)),
		}
		for _, o := range kq.Options {
			pq.Options = append(pq.Options, domain.Option{ID: o.ID, Text: o.Text})
		}
		q.Questions = append(q.Questions, pq)
	}

	return &q, nil
}

// KeyedQuestions loads the questions of a quiz ordered by id, each with its
// options ordered by id. Questions without options are kept with an empty slice.
func (s *Service) KeyedQuestions(ctx context.Context, quizID int64) ([]KeyedQuestion, error) {
	const stmt = `
SELECT q.id, q.text, o.id, o.text, o.is_correct
FROM questions q
LEFT JOIN options o ON o.question_id = q.id
WHERE q.quiz_id = ?
ORDER BY q.id ASC, o.id ASC;`

	rows, err := s.db.QueryContext(ctx, stmt, quizID)
	if err != nil {
		return nil, fmt.Errorf("query questions of quiz %d: %w", quizID, err)
	}
	defer rows.Close()

	var questions []KeyedQuestion
	for rows.Next() {
		var (
			qID       int64
			qText     string
			oID       sql.NullInt64
			oText     sql.NullString
			isCorrect sql.NullInt64
		)
		if err := rows.Scan(&qID, &qText, &oID, &oText, &isCorrect); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}

		if n := len(questions); n == 0 || questions[n-1].ID != qID {
			questions = append(questions, KeyedQuestion{ID: qID, Text: qText, Options: []KeyedOption{}})
		}

		if !oID.Valid {
			continue
		}

		last := &questions[len(questions)-1]
		last.Options = append(last.Options, KeyedOption{
			ID:        oID.Int64,
			Text:      oText.String,
			IsCorrect: isCorrect.Int64 == 1,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return questions, nil
}
