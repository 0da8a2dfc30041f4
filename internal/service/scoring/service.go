// Package scoring is the read-side aggregator: per-user window metrics,
// leaderboards and inactivity detection. It never mutates session or
// submission state.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/session"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/submission"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

type submissionStats interface {
	StatsForWindow(ctx context.Context, userID int64, from, to time.Time) (submission.WindowStats, error)
	PerUserStats(ctx context.Context, from, to time.Time) ([]submission.WindowStats, error)
	DistinctTranslators(ctx context.Context, from, to time.Time) (map[int64]string, error)
}

type sessionMinutes interface {
	MinutesForWindow(ctx context.Context, userID int64, from, to time.Time) (session.Minutes, error)
	PerUserMinutes(ctx context.Context, from, to time.Time) (map[int64]session.Minutes, error)
}

type assignmentCounts interface {
	CountForWindow(ctx context.Context, userID int64, from, to time.Time) (int, error)
	PerUserAssigned(ctx context.Context, from, to time.Time) (map[int64]int, error)
}

type messageLog interface {
	DistinctSenders(ctx context.Context, from, to time.Time) (map[int64]string, error)
}

// Service implements score aggregation.
type Service struct {
	submissions submissionStats
	sessions    sessionMinutes
	assignments assignmentCounts
	messages    messageLog
	weights     domain.ScoringWeights
	log         *slog.Logger
}

// NewService creates a new scoring service.
func NewService(log *slog.Logger, submissions submissionStats, sessions sessionMinutes, assignments assignmentCounts, messages messageLog, weights domain.ScoringWeights) *Service {
	return &Service{
		submissions: submissions,
		sessions:    sessions,
		assignments: assignments,
		messages:    messages,
		weights:     weights,
		log:         log.With("service", "scoring"),
	}
}

// UserStats computes one user's metrics for [from, to). Both session-minute
// aggregates are populated; FinalScore uses the given policy.
func (s *Service) UserStats(ctx context.Context, userID int64, from, to time.Time, policy domain.MinutesPolicy) (domain.UserStats, error) {
	ws, err := s.submissions.StatsForWindow(ctx, userID, from, to)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("user stats: %w", err)
	}

	assigned, err := s.assignments.CountForWindow(ctx, userID, domain.Day(from), domain.Day(to))
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("user stats: %w", err)
	}

	minutes, err := s.sessions.MinutesForWindow(ctx, userID, from, to)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("user stats: %w", err)
	}

	return s.buildStats(userID, ws, assigned, minutes, policy), nil
}

// Leaderboard computes the ranked standings for [from, to). Returns
// domain.ErrNoActivity when the window has no graded activity at all —
// an explicit "nothing happened" beats a leaderboard of zeros.
func (s *Service) Leaderboard(ctx context.Context, from, to time.Time, policy domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
	perUser, err := s.submissions.PerUserStats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	if len(perUser) == 0 {
		return nil, domain.ErrNoActivity
	}

	assigned, err := s.assignments.PerUserAssigned(ctx, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	minutes, err := s.sessions.PerUserMinutes(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	stats := make([]domain.UserStats, 0, len(perUser))
	for _, ws := range perUser {
		stats = append(stats, s.buildStats(ws.UserID, ws, assigned[ws.UserID], minutes[ws.UserID], policy))
	}

	// Deterministic order: final score desc, then translated desc, then
	// username asc.
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].FinalScore != stats[j].FinalScore {
			return stats[i].FinalScore > stats[j].FinalScore
		}
		if stats[i].TranslatedCount != stats[j].TranslatedCount {
			return stats[i].TranslatedCount > stats[j].TranslatedCount
		}
		return stats[i].Username < stats[j].Username
	})

	rows := make([]domain.LeaderboardRow, len(stats))
	for i, st := range stats {
		rows[i] = domain.LeaderboardRow{
			Rank:      i + 1,
			Podium:    i < 3,
			UserStats: st,
		}
	}

	return rows, nil
}

// InactiveUsers returns everyone who wrote in the chat during the window but
// submitted nothing — a set difference, not a score. A user with even one
// ungraded submission is active.
func (s *Service) InactiveUsers(ctx context.Context, from, to time.Time) ([]domain.ChatUser, error) {
	senders, err := s.messages.DistinctSenders(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("inactive users: %w", err)
	}

	translators, err := s.submissions.DistinctTranslators(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("inactive users: %w", err)
	}

	var out []domain.ChatUser
	for id, name := range senders {
		if _, ok := translators[id]; !ok {
			out = append(out, domain.ChatUser{UserID: id, Username: name})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })

	return out, nil
}

func (s *Service) buildStats(userID int64, ws submission.WindowStats, assigned int, minutes session.Minutes, policy domain.MinutesPolicy) domain.UserStats {
	missed := assigned - ws.TranslatedCount
	if missed < 0 {
		missed = 0
	}

	st := domain.UserStats{
		UserID:            userID,
		Username:          ws.Username,
		TranslatedCount:   ws.TranslatedCount,
		AvgScore:          ws.AvgScore,
		TotalAssigned:     assigned,
		MissedCount:       missed,
		SessionMinutesSum: minutes.Sum,
		SessionMinutesAvg: minutes.Avg,
	}

	chargedMinutes := st.SessionMinutesSum
	if policy == domain.MinutesAvg {
		chargedMinutes = st.SessionMinutesAvg
	}

	st.FinalScore = st.AvgScore -
		s.weights.TimeWeight*chargedMinutes -
		s.weights.MissedSentencePenalty*float64(missed)

	return st
}
