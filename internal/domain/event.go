package domain

const (
	EventNameQuizSubmitted       = "quiz.submitted"
	EventNameLeaderboardRecorded = "leaderboard.recorded"
)

type EventQuizSubmitted struct {
	Result SubmitResult
}

func (EventQuizSubmitted) Name() string { return EventNameQuizSubmitted }

type EventLeaderboardRecorded struct {
	Entry LeaderboardEntry
}

func (EventLeaderboardRecorded) Name() string { return EventNameLeaderboardRecorded }
