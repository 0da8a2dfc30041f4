// Package admin implements the administrative data-reset operation.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

type assignmentRepo interface {
	DeleteForUser(ctx context.Context, userID int64, day time.Time) (int64, error)
}

type sessionRepo interface {
	DeleteForUser(ctx context.Context, userID int64, day time.Time) (int64, error)
}

type submissionRepo interface {
	DeleteForUser(ctx context.Context, userID int64, day time.Time) (int64, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements admin resets.
type Service struct {
	assignments assignmentRepo
	sessions    sessionRepo
	submissions submissionRepo
	tx          txManager
	log         *slog.Logger
}

// NewService creates a new admin service.
func NewService(log *slog.Logger, assignments assignmentRepo, sessions sessionRepo, submissions submissionRepo, tx txManager) *Service {
	return &Service{
		assignments: assignments,
		sessions:    sessions,
		submissions: submissions,
		tx:          tx,
		log:         log.With("service", "admin"),
	}
}

// ResetCounts reports how many rows a reset removed per entity.
type ResetCounts struct {
	Submissions int64
	Sessions    int64
	Assignments int64
}

// ResetUser deletes the user's submissions, sessions and assignments for the
// given day in one transaction. Deleting assignments cascades to any
// submissions referencing them, so submissions go first to get an honest
// count.
func (s *Service) ResetUser(ctx context.Context, userID int64, day time.Time) (ResetCounts, error) {
	day = domain.Day(day)

	var counts ResetCounts
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error

		if counts.Submissions, err = s.submissions.DeleteForUser(txCtx, userID, day); err != nil {
			return err
		}
		if counts.Sessions, err = s.sessions.DeleteForUser(txCtx, userID, day); err != nil {
			return err
		}
		if counts.Assignments, err = s.assignments.DeleteForUser(txCtx, userID, day); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return ResetCounts{}, fmt.Errorf("reset user %d: %w", userID, err)
	}

	s.log.InfoContext(ctx, "user data reset",
		slog.Int64("user_id", userID),
		slog.Time("day", day),
		slog.Int64("submissions", counts.Submissions),
		slog.Int64("sessions", counts.Sessions),
		slog.Int64("assignments", counts.Assignments),
	)

	return counts, nil
}
