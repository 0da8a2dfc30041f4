// Package submission processes translation submissions: ownership checks,
// first-submission-only enforcement, grading, persistence. Entries in one
// batch are processed independently; one bad entry never blocks the rest.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

// Status classifies the outcome of one submitted entry.
type Status string

const (
	// StatusGraded means the submission was persisted with a score.
	StatusGraded Status = "GRADED"
	// StatusScorePending means the submission was persisted but the grader
	// returned no parsable score; the feedback is stored for human review.
	StatusScorePending Status = "SCORE_PENDING"
	// StatusNotOwned means the sentence number is not assigned to this user
	// today; nothing was graded or stored.
	StatusNotOwned Status = "NOT_OWNED"
	// StatusAlreadySubmitted means a submission for this sentence already
	// exists; the first one stands untouched.
	StatusAlreadySubmitted Status = "ALREADY_SUBMITTED"
	// StatusFailed means a storage failure prevented processing this entry;
	// nothing was persisted and the user should resubmit it.
	StatusFailed Status = "FAILED"
)

// Result is the per-entry outcome, returned in input order.
type Result struct {
	Seq      int
	Status   Status
	Score    *int
	Feedback string
}

type allocatorLookup interface {
	Lookup(ctx context.Context, userID int64, day time.Time, seq int) (*domain.Assignment, error)
}

type submissionRepo interface {
	Create(ctx context.Context, s *domain.Submission) (*domain.Submission, error)
	ExistsFor(ctx context.Context, userID int64, assignmentID uuid.UUID) (bool, error)
}

type grader interface {
	Grade(ctx context.Context, source, candidate string) (domain.GradeResult, error)
}

type clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service implements submission processing.
type Service struct {
	allocator    allocatorLookup
	submissions  submissionRepo
	grader       grader
	storeTimeout time.Duration
	clock        clock
	log          *slog.Logger
}

// NewService creates a new submission service. storeTimeout bounds each
// repository call individually; the grader is budgeted by its own retry
// ladder, so a slow grading round never expires the context that the
// subsequent persist depends on.
func NewService(log *slog.Logger, allocator allocatorLookup, submissions submissionRepo, grader grader, storeTimeout time.Duration) *Service {
	return &Service{
		allocator:    allocator,
		submissions:  submissions,
		grader:       grader,
		storeTimeout: storeTimeout,
		clock:        systemClock{},
		log:          log.With("service", "submission"),
	}
}

// storeCtx derives a per-call context for one repository round trip.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Submit processes a batch of parsed entries for today's assignments.
// Results come back in input order; partial success is normal.
func (s *Service) Submit(ctx context.Context, userID int64, username string, entries []Entry) ([]Result, error) {
	if len(entries) == 0 {
		return nil, domain.NewValidationError("entries", "no translation entries")
	}

	today := domain.Day(s.clock.Now())

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		results = append(results, s.submitOne(ctx, userID, username, today, e))
	}

	return results, nil
}

func (s *Service) submitOne(ctx context.Context, userID int64, username string, day time.Time, e Entry) Result {
	lookupCtx, cancel := s.storeCtx(ctx)
	assignment, err := s.allocator.Lookup(lookupCtx, userID, day, e.Seq)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{Seq: e.Seq, Status: StatusNotOwned,
				Feedback: fmt.Sprintf("Sentence %d is not in your batch for today.", e.Seq)}
		}
		s.log.ErrorContext(ctx, "assignment lookup failed",
			slog.Int64("user_id", userID), slog.Int("seq", e.Seq), slog.String("error", err.Error()))
		return Result{Seq: e.Seq, Status: StatusFailed, Feedback: "Could not resolve this sentence, try again."}
	}

	// Early duplicate check saves a grader call; the unique index below is
	// what actually guarantees first-submission-wins under concurrency.
	existsCtx, cancel := s.storeCtx(ctx)
	exists, err := s.submissions.ExistsFor(existsCtx, userID, assignment.ID)
	cancel()
	if err == nil && exists {
		return alreadySubmitted(e.Seq)
	}

	grade, err := s.grader.Grade(ctx, assignment.Text, e.Text)
	if err != nil {
		// Non-transient grader failure: keep the submission, score stays
		// open for human adjudication.
		s.log.ErrorContext(ctx, "grading failed",
			slog.Int64("user_id", userID), slog.Int("seq", e.Seq), slog.String("error", err.Error()))
		grade = domain.GradeResult{Feedback: "Grading failed. Your translation was recorded."}
	}

	sub := &domain.Submission{
		ID:           uuid.New(),
		UserID:       userID,
		Username:     username,
		AssignmentID: assignment.ID,
		Translation:  e.Text,
		Score:        grade.Score,
		Feedback:     grade.Feedback,
		CreatedAt:    s.clock.Now(),
	}

	createCtx, cancel := s.storeCtx(ctx)
	_, err = s.submissions.Create(createCtx, sub)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Concurrent duplicate: the other writer's submission stands.
			return alreadySubmitted(e.Seq)
		}
		s.log.ErrorContext(ctx, "persist submission failed",
			slog.Int64("user_id", userID), slog.Int("seq", e.Seq), slog.String("error", err.Error()))
		return Result{Seq: e.Seq, Status: StatusFailed, Feedback: "Could not save this translation, try again."}
	}

	status := StatusGraded
	if grade.Score == nil {
		status = StatusScorePending
	}

	return Result{Seq: e.Seq, Status: status, Score: grade.Score, Feedback: grade.Feedback}
}

func alreadySubmitted(seq int) Result {
	return Result{Seq: seq, Status: StatusAlreadySubmitted,
		Feedback: fmt.Sprintf("Sentence %d was already submitted; the first translation stands.", seq)}
}
