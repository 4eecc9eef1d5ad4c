package score

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/victornm/quizluv/internal/domain"
	"github.com/victornm/quizluv/internal/errors"
	"github.com/victornm/quizluv/internal/event"
	"github.com/victornm/quizluv/internal/quiz"
)

type Config struct {
	EventBus *event.Bus
	Quiz     *quiz.Service
}

type Service struct {
	eb   *event.Bus
	quiz *quiz.Service
}

func NewService(c Config) *Service {
	return &Service{
		eb:   c.EventBus,
		quiz: c.Quiz,
	}
}

type SubmitRequest struct {
	QuizID int64
	// Answers maps a question id in decimal form to an answer letter.
	Answers          map[string]string
	TimeTakenSeconds int
}

// Submit grades an attempt against the stored answer key. It never writes to
// storage, so identical requests yield identical results.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.SubmitResult, error) {
	if req.TimeTakenSeconds < 0 {
		return nil, errors.InvalidArgument("timeTakenSeconds must not be negative")
	}

	questions, err := s.quiz.KeyedQuestions(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	if len(questions) == 0 {
		return nil, errors.NotFound("Quiz not found or empty")
	}

	res := domain.SubmitResult{
		QuizID:         req.QuizID,
		TotalQuestions: len(questions),
		TimeTaken:      req.TimeTakenSeconds,
		Results:        make([]domain.QuestionResult, 0, len(questions)),
	}

	for _, q := range questions {
		r := ScoreQuestion(q, req.Answers)
		if r.IsCorrect {
			res.Score++
		}

		if r.Degraded() {
			slog.WarnContext(ctx, "score: data integrity anomaly",
				"quiz_id", req.QuizID,
				"question_id", q.ID,
				"options", len(q.Options),
				"anomaly", r.Anomaly,
			)
		}

		res.Results = append(res.Results, r)
	}

	res.Percentage = Percentage(res.Score, res.TotalQuestions)

	s.eb.Publish(ctx, domain.EventQuizSubmitted{
		Result: res,
	})

	return &res, nil
}

// ScoreQuestion grades a single question. Options are labelled A to D by their
// position in id order.
//
// A question without exactly four options yields a result with blank option
// slots, no user answer and correct answer "A", always wrong. A question with no
// option flagged correct is graded as if the first option were correct. Both
// cases are tagged with an anomaly. Answers that are not one of the four letters
// count as unanswered.
func ScoreQuestion(q quiz.KeyedQuestion, answers map[string]string) domain.QuestionResult {
	r := domain.QuestionResult{
		QuestionID:    q.ID,
		QuestionText:  q.Text,
		CorrectAnswer: domain.LetterA,
	}

	if len(q.Options) != domain.OptionsPerQuestion {
		r.Anomaly = domain.AnomalyOptionCount
		return r
	}

	correct := -1
	for i, o := range q.Options {
		l, _ := domain.PositionToLetter(i)
		r.Options.Set(l, o.Text)

		if o.IsCorrect && correct < 0 {
			correct = i
		}
	}

	if correct < 0 {
		correct = 0
		r.Anomaly = domain.AnomalyNoCorrectOption
	}
	r.CorrectAnswer, _ = domain.PositionToLetter(correct)

	if a, ok := answers[strconv.FormatInt(q.ID, 10)]; ok {
		if l, ok := domain.ParseLetter(a); ok {
			r.UserAnswer = &l
		}
	}

	r.IsCorrect = r.UserAnswer != nil && *r.UserAnswer == r.CorrectAnswer
	return r
}

// Percentage returns score/total*100 rounded half up. It is 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}

	return int(decimal.NewFromInt(int64(score) * 100).
		Div(decimal.NewFromInt(int64(total))).
		Round(0).
		IntPart())
}
