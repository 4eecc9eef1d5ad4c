package api

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/victornm/quizluv/internal/domain"
)

type (
	SubmitRequest struct {
		Answers          map[string]string `json:"answers" binding:"required,dive,keys,number,endkeys,oneof=A B C D"`
		TimeTakenSeconds *WholeNumber      `json:"timeTakenSeconds" binding:"required,min=0"`
	}

	RecordRequest struct {
		Name     string       `json:"name" binding:"required"`
		Category string       `json:"category" binding:"required"`
		Score    *WholeNumber `json:"score" binding:"required,min=0"`
		Time     *WholeNumber `json:"time" binding:"required,min=0"`
	}
)

type (
	Quiz struct {
		ID        int64      `json:"id"`
		Name      string     `json:"name"`
		Questions []Question `json:"questions"`
	}

	Question struct {
		ID      int64    `json:"id"`
		Text    string   `json:"text"`
		Options []Option `json:"options"`
	}

	Option struct {
		ID   int64  `json:"id"`
		Text string `json:"text"`
	}
)

type (
	SubmitResult struct {
		Score          int              `json:"score"`
		TotalQuestions int              `json:"totalQuestions"`
		Percentage     int              `json:"percentage"`
		TimeTaken      int              `json:"timeTaken"`
		Results        []QuestionResult `json:"results"`
	}

	QuestionResult struct {
		QuestionID    int64         `json:"questionId"`
		QuestionText  string        `json:"questionText"`
		Options       LetterOptions `json:"options"`
		UserAnswer    *string       `json:"userAnswer"`
		CorrectAnswer string        `json:"correctAnswer"`
		IsCorrect     bool          `json:"isCorrect"`
		Anomaly       string        `json:"anomaly,omitempty"`
	}

	LetterOptions struct {
		A string `json:"A"`
		B string `json:"B"`
		C string `json:"C"`
		D string `json:"D"`
	}
)

type LeaderboardEntry struct {
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Score     int       `json:"score"`
	Time      int       `json:"time"`
	CreatedAt time.Time `json:"createdAt"`
}

func toQuiz(q *domain.Quiz) Quiz {
	out := Quiz{
		ID:        q.ID,
		Name:      q.Name,
		Questions: make([]Question, 0, len(q.Questions)),
	}

	for _, qn := range q.Questions {
		pq := Question{
			ID:      qn.ID,
			Text:    qn.Text,
			Options: make([]Option, 0, len(qn.Options)),
		}
		for _, o := range qn.Options {
			pq.Options = append(pq.Options, Option{ID: o.ID, Text: o.Text})
		}
		out.Questions = append(out.Questions, pq)
	}

	return out
}

func toSubmitResult(r *domain.SubmitResult) SubmitResult {
	out := SubmitResult{
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		Percentage:     r.Percentage,
		TimeTaken:      r.TimeTaken,
		Results:        make([]QuestionResult, 0, len(r.Results)),
	}

	for _, q := range r.Results {
		qr := QuestionResult{
			QuestionID:    q.QuestionID,
			QuestionText:  q.QuestionText,
			Options:       LetterOptions(q.Options),
			CorrectAnswer: string(q.CorrectAnswer),
			IsCorrect:     q.IsCorrect,
			Anomaly:       string(q.Anomaly),
		}
		if q.UserAnswer != nil {
			l := string(*q.UserAnswer)
			qr.UserAnswer = &l
		}
		out.Results = append(out.Results, qr)
	}

	return out
}

func toLeaderboard(entries []domain.LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardEntry(e))
	}
	return out
}

// WholeNumber is an int that decodes from any JSON number with an integral
// value, so 12, 12.0 and 1.2e1 are all 12.
type WholeNumber int

func (n *WholeNumber) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt || f < math.MinInt {
		return &json.UnmarshalTypeError{Value: jsonKind(b), Type: reflect.TypeOf(0)}
	}

	*n = WholeNumber(f)
	return nil
}

func jsonKind(b []byte) string {
	if len(b) == 0 {
		return "value"
	}

	switch b[0] {
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case '{':
		return "object"
	case '[':
		return "array"
	case 'n':
		return "null"
	}
	return "number " + string(b)
}
