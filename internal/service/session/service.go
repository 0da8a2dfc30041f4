// Package session owns the per-user practice-session state machine:
// idle → active → completed, with at most one active session per user.
// The single-active invariant is enforced by the storage layer (partial
// unique index), not by check-then-write logic here.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

type sessionRepo interface {
	Create(ctx context.Context, s *domain.PracticeSession) (*domain.PracticeSession, error)
	GetActive(ctx context.Context, userID int64) (*domain.PracticeSession, error)
	HasAny(ctx context.Context, userID int64) (bool, error)
	FinishActive(ctx context.Context, userID int64, finishedAt time.Time) (*domain.PracticeSession, error)
	FinalizeAllForDay(ctx context.Context, day, now time.Time) (int64, error)
	DeleteActive(ctx context.Context, userID int64) (int64, error)
}

type assignmentCounter interface {
	CountForUserDay(ctx context.Context, userID int64, day time.Time) (int, error)
}

type submissionCounter interface {
	CountForUserDay(ctx context.Context, userID int64, day time.Time) (int, error)
}

type clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service implements the session state machine.
type Service struct {
	sessions      sessionRepo
	assignments   assignmentCounter
	submissions   submissionCounter
	missedPenalty float64
	clock         clock
	log           *slog.Logger
}

// NewService creates a new session service. missedPenalty is the score
// penalty per assigned-but-untranslated sentence.
func NewService(log *slog.Logger, sessions sessionRepo, assignments assignmentCounter, submissions submissionCounter, missedPenalty float64) *Service {
	return &Service{
		sessions:      sessions,
		assignments:   assignments,
		submissions:   submissions,
		missedPenalty: missedPenalty,
		clock:         systemClock{},
		log:           log.With("service", "session"),
	}
}

// StartSession opens a new timed session for the user. Returns
// domain.ErrSessionActive when one is already open — including when a
// concurrent duplicate request won the insert race.
func (s *Service) StartSession(ctx context.Context, userID int64, username string) (*domain.PracticeSession, error) {
	session := &domain.PracticeSession{
		ID:        uuid.New(),
		UserID:    userID,
		Username:  username,
		StartedAt: s.clock.Now(),
	}

	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrSessionActive
		}
		return nil, fmt.Errorf("start session: %w", err)
	}

	s.log.InfoContext(ctx, "session started",
		slog.Int64("user_id", userID),
		slog.String("session_id", created.ID.String()),
	)

	return created, nil
}

// ExtendSession opens a fresh timed session for a user requesting more
// sentences. Requires a prior session record (the user must have started at
// least once) and no currently open session.
func (s *Service) ExtendSession(ctx context.Context, userID int64, username string) (*domain.PracticeSession, error) {
	hasAny, err := s.sessions.HasAny(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}
	if !hasAny {
		return nil, fmt.Errorf("extend session: %w", domain.ErrNotFound)
	}

	session := &domain.PracticeSession{
		ID:        uuid.New(),
		UserID:    userID,
		Username:  username,
		StartedAt: s.clock.Now(),
	}

	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrSessionActive
		}
		return nil, fmt.Errorf("extend session: %w", err)
	}

	s.log.InfoContext(ctx, "session extended",
		slog.Int64("user_id", userID),
		slog.String("session_id", created.ID.String()),
	)

	return created, nil
}

// RequestFinish reports today's progress without changing state, so the user
// can confirm before the penalty is applied. Returns domain.ErrNoActiveSession
// when nothing is open.
func (s *Service) RequestFinish(ctx context.Context, userID int64) (domain.FinishPreview, error) {
	if _, err := s.sessions.GetActive(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.FinishPreview{}, domain.ErrNoActiveSession
		}
		return domain.FinishPreview{}, fmt.Errorf("request finish: %w", err)
	}

	translated, total, err := s.todayProgress(ctx, userID)
	if err != nil {
		return domain.FinishPreview{}, fmt.Errorf("request finish: %w", err)
	}

	return domain.FinishPreview{TranslatedCount: translated, TotalCount: total}, nil
}

// ConfirmFinish completes the active session and reports the missed-sentence
// penalty. end_time is clamped to start_time so clock skew can never produce
// a negative duration. A session already completed by the scheduled sweep
// yields domain.ErrNoActiveSession, never a second penalty.
func (s *Service) ConfirmFinish(ctx context.Context, userID int64) (domain.FinishResult, error) {
	active, err := s.sessions.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.FinishResult{}, domain.ErrNoActiveSession
		}
		return domain.FinishResult{}, fmt.Errorf("confirm finish: %w", err)
	}

	end := s.clock.Now()
	if end.Before(active.StartedAt) {
		end = active.StartedAt
	}

	if _, err := s.sessions.FinishActive(ctx, userID, end); err != nil {
		// Lost the race against ForceFinalizeAll: the session is already
		// completed, nothing left to do.
		if errors.Is(err, domain.ErrNotFound) {
			return domain.FinishResult{}, domain.ErrNoActiveSession
		}
		return domain.FinishResult{}, fmt.Errorf("confirm finish: %w", err)
	}

	translated, total, err := s.todayProgress(ctx, userID)
	if err != nil {
		return domain.FinishResult{}, fmt.Errorf("confirm finish: %w", err)
	}

	missed := total - translated
	if missed < 0 {
		missed = 0
	}

	result := domain.FinishResult{
		TranslatedCount: translated,
		TotalCount:      total,
		MissedCount:     missed,
		Penalty:         float64(missed) * s.missedPenalty,
	}

	s.log.InfoContext(ctx, "session finished",
		slog.Int64("user_id", userID),
		slog.Int("translated", translated),
		slog.Int("total", total),
		slog.Float64("penalty", result.Penalty),
	)

	return result, nil
}

// CancelSession discards the user's open session, as if it was never
// started. Used to unwind a start whose sentence hand-out failed, so the
// user can simply retry. No open session is not an error.
func (s *Service) CancelSession(ctx context.Context, userID int64) error {
	removed, err := s.sessions.DeleteActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}

	if removed > 0 {
		s.log.InfoContext(ctx, "session cancelled", slog.Int64("user_id", userID))
	}

	return nil
}

// ForceFinalizeAll completes every session still open for the given day.
// Idempotent: a second run affects zero rows.
func (s *Service) ForceFinalizeAll(ctx context.Context, day time.Time) (int64, error) {
	closed, err := s.sessions.FinalizeAllForDay(ctx, day, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("force finalize: %w", err)
	}

	if closed > 0 {
		s.log.InfoContext(ctx, "sessions force-finalized",
			slog.Time("day", domain.Day(day)),
			slog.Int64("closed", closed),
		)
	}

	return closed, nil
}

// todayProgress counts submitted vs assigned sentences for today. Progress
// counts every submission, graded or not: a grader outage must not turn into
// a missed-sentence penalty.
func (s *Service) todayProgress(ctx context.Context, userID int64) (translated, total int, err error) {
	today := domain.Day(s.clock.Now())

	total, err = s.assignments.CountForUserDay(ctx, userID, today)
	if err != nil {
		return 0, 0, fmt.Errorf("count assigned: %w", err)
	}

	translated, err = s.submissions.CountForUserDay(ctx, userID, today)
	if err != nil {
		return 0, 0, fmt.Errorf("count translated: %w", err)
	}

	return translated, total, nil
}
