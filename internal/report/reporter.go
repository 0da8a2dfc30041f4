// Package report implements the scheduled entry points: morning broadcast,
// progress snapshot, end-of-day and end-of-week summaries. The scheduler
// itself is external (cron invoking the cmd binaries); this package only
// needs a Sink to deliver text to the group.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/bot"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

type scoringService interface {
	Leaderboard(ctx context.Context, from, to time.Time, policy domain.MinutesPolicy) ([]domain.LeaderboardRow, error)
	InactiveUsers(ctx context.Context, from, to time.Time) ([]domain.ChatUser, error)
}

type sessionService interface {
	ForceFinalizeAll(ctx context.Context, day time.Time) (int64, error)
}

type purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reporter produces the scheduled group messages.
type Reporter struct {
	scoring  scoringService
	sessions sessionService

	// Retention sweep targets, in delete order.
	submissions purger
	progress    purger
	assignments purger
	messages    purger

	sink          bot.Sink
	retentionDays int
	log           *slog.Logger
}

// New creates a new Reporter.
func New(
	log *slog.Logger,
	scoring scoringService,
	sessions sessionService,
	submissions, progress, assignments, messages purger,
	sink bot.Sink,
	retentionDays int,
) *Reporter {
	return &Reporter{
		scoring:       scoring,
		sessions:      sessions,
		submissions:   submissions,
		progress:      progress,
		assignments:   assignments,
		messages:      messages,
		sink:          sink,
		retentionDays: retentionDays,
		log:           log.With("component", "report"),
	}
}

// MorningBroadcast announces the day's round. It does not allocate anything:
// sentences are numbered per user when they send /go.
func (r *Reporter) MorningBroadcast(ctx context.Context) error {
	const text = "Guten Morgen! Today's translation round is open.\n\n" +
		"Send /go to get your sentences, /translate <number>. <translation> to submit, " +
		"/more for another batch, and /done when you are finished."

	return r.sink.Send(ctx, text)
}

// ProgressSnapshot posts the intermediate standings for today.
func (r *Reporter) ProgressSnapshot(ctx context.Context, now time.Time) error {
	from := domain.Day(now)
	to := from.AddDate(0, 0, 1)

	rows, err := r.scoring.Leaderboard(ctx, from, to, domain.MinutesSum)
	if err != nil {
		if errors.Is(err, domain.ErrNoActivity) {
			return r.sink.Send(ctx, "No translations yet today. The day is not over!")
		}
		return fmt.Errorf("progress snapshot: %w", err)
	}

	return r.sink.Send(ctx, "Standings so far:\n\n"+formatLeaderboard(rows))
}

// DailySummary closes the day: forces open sessions shut, then posts the
// day's leaderboard (sum-of-minutes policy) and the inactive list.
func (r *Reporter) DailySummary(ctx context.Context, day time.Time) error {
	if _, err := r.sessions.ForceFinalizeAll(ctx, day); err != nil {
		return fmt.Errorf("daily summary: %w", err)
	}

	from := domain.Day(day)
	to := from.AddDate(0, 0, 1)

	rows, err := r.scoring.Leaderboard(ctx, from, to, domain.MinutesSum)
	if err != nil {
		if errors.Is(err, domain.ErrNoActivity) {
			return r.sink.Send(ctx, "Day results: nobody translated anything today.")
		}
		return fmt.Errorf("daily summary: %w", err)
	}

	text := "Day results:\n\n" + formatLeaderboard(rows)

	inactive, err := r.scoring.InactiveUsers(ctx, from, to)
	if err != nil {
		return fmt.Errorf("daily summary: %w", err)
	}
	if len(inactive) > 0 {
		text += "\n" + formatInactive(inactive)
	}

	return r.sink.Send(ctx, text)
}

// WeeklySummary posts the trailing-7-day leaderboard (weekly totals use the
// sum policy) and then purges rows past the retention window.
func (r *Reporter) WeeklySummary(ctx context.Context, now time.Time) error {
	to := domain.Day(now).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -7)

	rows, err := r.scoring.Leaderboard(ctx, from, to, domain.MinutesSum)
	if err != nil && !errors.Is(err, domain.ErrNoActivity) {
		return fmt.Errorf("weekly summary: %w", err)
	}

	if errors.Is(err, domain.ErrNoActivity) {
		if sendErr := r.sink.Send(ctx, "Week results: a completely silent week. Nothing to rank."); sendErr != nil {
			return sendErr
		}
	} else {
		if sendErr := r.sink.Send(ctx, "Week results:\n\n"+formatLeaderboard(rows)); sendErr != nil {
			return sendErr
		}
	}

	return r.purge(ctx, now)
}

// purge removes rows older than the retention window. Submissions go before
// assignments so the cascade doesn't hide their count.
func (r *Reporter) purge(ctx context.Context, now time.Time) error {
	cutoff := domain.Day(now).AddDate(0, 0, -r.retentionDays)

	targets := []struct {
		name string
		p    purger
	}{
		{"submissions", r.submissions},
		{"sessions", r.progress},
		{"assignments", r.assignments},
		{"messages", r.messages},
	}

	for _, t := range targets {
		n, err := t.p.PurgeBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("purge %s: %w", t.name, err)
		}
		r.log.InfoContext(ctx, "retention purge",
			slog.String("entity", t.name),
			slog.Int64("removed", n),
			slog.Time("cutoff", cutoff),
		)
	}

	return nil
}
