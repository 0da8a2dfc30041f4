package domain

// MinutesPolicy selects how completed-session minutes enter the final score.
// Both aggregates are always computed; each report picks one explicitly.
type MinutesPolicy string

const (
	// MinutesSum charges every completed session in the window (daily summary,
	// weekly totals).
	MinutesSum MinutesPolicy = "SUM"
	// MinutesAvg charges only the typical session pace (/stats, weekly
	// per-session view).
	MinutesAvg MinutesPolicy = "AVG"
)

// ScoringWeights are the penalty constants of the final-score formula.
// The production values are configuration, not code.
type ScoringWeights struct {
	// MissedSentencePenalty is subtracted once per assigned-but-untranslated
	// sentence.
	MissedSentencePenalty float64
	// TimeWeight is subtracted per session minute (per the selected policy).
	TimeWeight float64
}

// UserStats are the per-user aggregates for a time window.
type UserStats struct {
	UserID          int64
	Username        string
	TranslatedCount int
	AvgScore        float64
	TotalAssigned   int
	MissedCount     int
	// SessionMinutesSum and SessionMinutesAvg are both always populated;
	// FinalScore uses whichever the caller's policy selected.
	SessionMinutesSum float64
	SessionMinutesAvg float64
	FinalScore        float64
}

// LeaderboardRow is one ranked entry of a window leaderboard.
// Rank is 1-based; rows 1..3 carry the podium flag.
type LeaderboardRow struct {
	Rank   int
	Podium bool
	UserStats
}

// FinishPreview reports progress without changing session state.
type FinishPreview struct {
	TranslatedCount int
	TotalCount      int
}

// FinishResult is the outcome of confirming a finish.
type FinishResult struct {
	TranslatedCount int
	TotalCount      int
	MissedCount     int
	Penalty         float64
}

// ChatUser identifies a participant seen in the message log.
type ChatUser struct {
	UserID   int64
	Username string
}
