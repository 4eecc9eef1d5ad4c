package domain

import (
	"time"
)

// Quiz is a named collection of questions as served to players.
type Quiz struct {
	ID        int64
	Name      string
	Questions []Question
}

type Question struct {
	ID      int64
	QuizID  int64
	Text    string
	Options []Option
}

// Option is the public view of an answer choice. It never carries the correct flag.
type Option struct {
	ID   int64
	Text string
}

// Anomaly tags a question result produced from stored data that breaks the
// four-options / one-correct invariant.
type Anomaly string

const (
	AnomalyNone            Anomaly = ""
	AnomalyOptionCount     Anomaly = "option_count"
	AnomalyNoCorrectOption Anomaly = "no_correct_option"
)

// LetterOptions maps each answer letter to its option text.
type LetterOptions struct {
	A string
	B string
	C string
	D string
}

// QuestionResult is the scored outcome of one question.
type QuestionResult struct {
	QuestionID    int64
	QuestionText  string
	Options       LetterOptions
	UserAnswer    *Letter
	CorrectAnswer Letter
	IsCorrect     bool
	Anomaly       Anomaly
}

// Degraded reports whether the result was synthesized from anomalous data.
func (r QuestionResult) Degraded() bool {
	return r.Anomaly != AnomalyNone
}

// SubmitResult is the outcome of grading a whole quiz attempt.
type SubmitResult struct {
	QuizID         int64
	Score          int
	TotalQuestions int
	Percentage     int
	TimeTaken      int
	Results        []QuestionResult
}

// LeaderboardEntry is an immutable record of one completed attempt.
type LeaderboardEntry struct {
	Name      string
	Category  string
	Score     int
	Time      int
	CreatedAt time.Time
}
