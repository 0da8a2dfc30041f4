package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

type sinkMock struct {
	sent []string
	err  error
}

func (m *sinkMock) Send(_ context.Context, text string) error {
	m.sent = append(m.sent, text)
	return m.err
}

type scoringMock struct {
	leaderboardFunc   func(ctx context.Context, from, to time.Time, policy domain.MinutesPolicy) ([]domain.LeaderboardRow, error)
	inactiveUsersFunc func(ctx context.Context, from, to time.Time) ([]domain.ChatUser, error)
}

func (m *scoringMock) Leaderboard(ctx context.Context, from, to time.Time, policy domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
	return m.leaderboardFunc(ctx, from, to, policy)
}

func (m *scoringMock) InactiveUsers(ctx context.Context, from, to time.Time) ([]domain.ChatUser, error) {
	if m.inactiveUsersFunc == nil {
		return nil, nil
	}
	return m.inactiveUsersFunc(ctx, from, to)
}

type sessionMock struct {
	finalizeFunc func(ctx context.Context, day time.Time) (int64, error)
}

func (m *sessionMock) ForceFinalizeAll(ctx context.Context, day time.Time) (int64, error) {
	if m.finalizeFunc == nil {
		return 0, nil
	}
	return m.finalizeFunc(ctx, day)
}

type purgerMock struct {
	name    string
	calls   *[]string
	cutoffs *[]time.Time
	err     error
}

func (m *purgerMock) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	*m.calls = append(*m.calls, m.name)
	*m.cutoffs = append(*m.cutoffs, cutoff)
	return 1, m.err
}

func newTestReporter(scoring *scoringMock, sessions *sessionMock, sink *sinkMock, retentionDays int) (*Reporter, *[]string, *[]time.Time) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	calls := &[]string{}
	cutoffs := &[]time.Time{}
	r := New(log, scoring, sessions,
		&purgerMock{name: "submissions", calls: calls, cutoffs: cutoffs},
		&purgerMock{name: "sessions", calls: calls, cutoffs: cutoffs},
		&purgerMock{name: "assignments", calls: calls, cutoffs: cutoffs},
		&purgerMock{name: "messages", calls: calls, cutoffs: cutoffs},
		sink, retentionDays)
	return r, calls, cutoffs
}

func sampleRows() []domain.LeaderboardRow {
	return []domain.LeaderboardRow{
		{Rank: 1, Podium: true, UserStats: domain.UserStats{
			Username: "anna", FinalScore: 75.5, TranslatedCount: 5, AvgScore: 80, SessionMinutesSum: 30,
		}},
		{Rank: 2, Podium: true, UserStats: domain.UserStats{
			Username: "boris", FinalScore: 60, TranslatedCount: 4, AvgScore: 70, SessionMinutesSum: 25,
		}},
	}
}

func TestMorningBroadcast(t *testing.T) {
	t.Parallel()

	sink := &sinkMock{}
	r, _, _ := newTestReporter(&scoringMock{}, &sessionMock{}, sink, 30)

	require.NoError(t, r.MorningBroadcast(context.Background()))
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0], "/go")
	assert.Contains(t, sink.sent[0], "/translate")
}

func TestProgressSnapshot_UsesTodayWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	var gotFrom, gotTo time.Time
	scoring := &scoringMock{
		leaderboardFunc: func(_ context.Context, from, to time.Time, policy domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
			gotFrom, gotTo = from, to
			assert.Equal(t, domain.MinutesSum, policy)
			return sampleRows(), nil
		},
	}
	sink := &sinkMock{}
	r, _, _ := newTestReporter(scoring, &sessionMock{}, sink, 30)

	require.NoError(t, r.ProgressSnapshot(context.Background(), now))

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), gotTo)
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0], "anna")
}

func TestProgressSnapshot_NoActivity(t *testing.T) {
	t.Parallel()

	scoring := &scoringMock{
		leaderboardFunc: func(context.Context, time.Time, time.Time, domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
			return nil, domain.ErrNoActivity
		},
	}
	sink := &sinkMock{}
	r, _, _ := newTestReporter(scoring, &sessionMock{}, sink, 30)

	require.NoError(t, r.ProgressSnapshot(context.Background(), time.Now()))
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0], "No translations yet today")
}

func TestDailySummary_FinalizesBeforeRanking(t *testing.T) {
	t.Parallel()

	var order []string
	sessions := &sessionMock{
		finalizeFunc: func(_ context.Context, _ time.Time) (int64, error) {
			order = append(order, "finalize")
			return 2, nil
		},
	}
	scoring := &scoringMock{
		leaderboardFunc: func(context.Context, time.Time, time.Time, domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
			order = append(order, "leaderboard")
			return sampleRows(), nil
		},
	}
	sink := &sinkMock{}
	r, _, _ := newTestReporter(scoring, sessions, sink, 30)

	require.NoError(t, r.DailySummary(context.Background(), time.Now()))
	assert.Equal(t, []string{"finalize", "leaderboard"}, order,
		"open sessions must be swept before scoring reads minutes")
}

func TestDailySummary_AppendsInactive(t *testing.T) {
	t.Parallel()

	scoring := &scoringMock{
		leaderboardFunc: func(context.Context, time.Time, time.Time, domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
			return sampleRows(), nil
		},
		inactiveUsersFunc: func(context.Context, time.Time, time.Time) ([]domain.ChatUser, error) {
			return []domain.ChatUser{{UserID: 3, Username: "clara"}}, nil
		},
	}
	sink := &sinkMock{}
	r, _, _ := newTestReporter(scoring, &sessionMock{}, sink, 30)

	require.NoError(t, r.DailySummary(context.Background(), time.Now()))
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0], "clara")
	assert.Contains(t, sink.sent[0], "translated nothing")
}

func TestDailySummary_NoActivity(t *testing.T) {
	t.Parallel()

	scoring := &scoringMock{
		leaderboardFunc: func(context.Context, time.Time, time.Time, domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
			return nil, domain.ErrNoActivity
		},
	}
	sink := &sinkMock{}
	r, _, _ := newTestReporter(scoring, &sessionMock{}, sink, 30)

	require.NoError(t, r.DailySummary(context.Background(), time.Now()))
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0], "nobody translated anything")
}

func TestWeeklySummary_TrailingWeekWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)
	var gotFrom, gotTo time.Time
	scoring := &scoringMock{
		leaderboardFunc: func(_ context.Context, from, to time.Time, _ domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
			gotFrom, gotTo = from, to
			return sampleRows(), nil
		},
	}
	sink := &sinkMock{}
	r, _, _ := newTestReporter(scoring, &sessionMock{}, sink, 30)

	require.NoError(t, r.WeeklySummary(context.Background(), now))

	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), gotTo)
}

func TestWeeklySummary_PurgesInOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)
	scoring := &scoringMock{
		leaderboardFunc: func(context.Context, time.Time, time.Time, domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
			return sampleRows(), nil
		},
	}
	sink := &sinkMock{}
	r, calls, cutoffs := newTestReporter(scoring, &sessionMock{}, sink, 30)

	require.NoError(t, r.WeeklySummary(context.Background(), now))

	assert.Equal(t, []string{"submissions", "sessions", "assignments", "messages"}, *calls)
	for _, cutoff := range *cutoffs {
		assert.Equal(t, time.Date(2025, 5, 16, 0, 0, 0, 0, time.UTC), cutoff)
	}
}

func TestWeeklySummary_SilentWeekStillPurges(t *testing.T) {
	t.Parallel()

	scoring := &scoringMock{
		leaderboardFunc: func(context.Context, time.Time, time.Time, domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
			return nil, domain.ErrNoActivity
		},
	}
	sink := &sinkMock{}
	r, calls, _ := newTestReporter(scoring, &sessionMock{}, sink, 30)

	require.NoError(t, r.WeeklySummary(context.Background(), time.Now()))
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0], "silent week")
	assert.Len(t, *calls, 4, "retention purge must run even with no activity")
}

func TestFormatLeaderboard(t *testing.T) {
	t.Parallel()

	rows := []domain.LeaderboardRow{
		{Rank: 1, Podium: true, UserStats: domain.UserStats{
			Username: "anna", FinalScore: 75.5, TranslatedCount: 5, AvgScore: 80, SessionMinutesSum: 30,
		}},
		{Rank: 4, Podium: false, UserStats: domain.UserStats{
			Username: "dima", FinalScore: 12, TranslatedCount: 1, AvgScore: 40, SessionMinutesSum: 5,
		}},
	}

	got := formatLeaderboard(rows)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "🥇 anna — 75.5 points"), "got %q", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "4. dima — 12.0 points"), "got %q", lines[1])
	assert.Contains(t, lines[0], "(5 translated, avg 80.0/100, 30 min)")
}

func TestWeeklySummary_PurgeErrorSurfaces(t *testing.T) {
	t.Parallel()

	scoring := &scoringMock{
		leaderboardFunc: func(context.Context, time.Time, time.Time, domain.MinutesPolicy) ([]domain.LeaderboardRow, error) {
			return sampleRows(), nil
		},
	}
	sink := &sinkMock{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	calls := &[]string{}
	cutoffs := &[]time.Time{}
	boom := errors.New("boom")
	r := New(log, scoring, &sessionMock{},
		&purgerMock{name: "submissions", calls: calls, cutoffs: cutoffs, err: boom},
		&purgerMock{name: "sessions", calls: calls, cutoffs: cutoffs},
		&purgerMock{name: "assignments", calls: calls, cutoffs: cutoffs},
		&purgerMock{name: "messages", calls: calls, cutoffs: cutoffs},
		sink, 30)

	err := r.WeeklySummary(context.Background(), time.Now())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"submissions"}, *calls, "purge must stop at the first failure")
}
