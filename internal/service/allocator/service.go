// Package allocator assigns per-user, per-day numbered sentence batches.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

type assignmentRepo interface {
	CreateBatch(ctx context.Context, userID int64, day time.Time, texts []string) ([]domain.Assignment, error)
	Lookup(ctx context.Context, userID int64, day time.Time, seq int) (*domain.Assignment, error)
	CountForUserDay(ctx context.Context, userID int64, day time.Time) (int, error)
}

// Service implements batch allocation with contiguous per-day numbering.
type Service struct {
	assignments assignmentRepo
	retries     int
	log         *slog.Logger
}

// NewService creates a new allocator service. retries bounds how many times
// a batch insert is reattempted when a concurrent allocation for the same
// (user, day) steals the sequence range.
func NewService(log *slog.Logger, assignments assignmentRepo, retries int) *Service {
	if retries < 1 {
		retries = 1
	}
	return &Service{
		assignments: assignments,
		retries:     retries,
		log:         log.With("service", "allocator"),
	}
}

// AllocateBatch creates one assignment per text, numbered contiguously from
// the user's current count for the day. All-or-nothing: the insert is a
// single statement, so a failure commits no partial batch. Returns the
// created assignments in sequence order.
func (s *Service) AllocateBatch(ctx context.Context, userID int64, day time.Time, texts []string) ([]domain.Assignment, error) {
	filtered := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t != "" {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	day = domain.Day(day)

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		created, err := s.assignments.CreateBatch(ctx, userID, day, filtered)
		if err == nil {
			s.log.InfoContext(ctx, "batch allocated",
				slog.Int64("user_id", userID),
				slog.Int("count", len(created)),
				slog.Int("first_seq", created[0].Seq),
			)
			return created, nil
		}

		// Unique violation: a concurrent batch took the same sequence range.
		// The whole statement rolled back, so retrying is safe.
		if errors.Is(err, domain.ErrAlreadyExists) {
			lastErr = err
			continue
		}

		return nil, fmt.Errorf("allocate batch: %w", err)
	}

	return nil, fmt.Errorf("allocate batch after %d attempts: %w", s.retries, lastErr)
}

// Lookup resolves an assignment by its user-visible number for a day.
func (s *Service) Lookup(ctx context.Context, userID int64, day time.Time, seq int) (*domain.Assignment, error) {
	return s.assignments.Lookup(ctx, userID, domain.Day(day), seq)
}

// CountForDay returns how many sentences the user received on the day.
func (s *Service) CountForDay(ctx context.Context, userID int64, day time.Time) (int, error) {
	return s.assignments.CountForUserDay(ctx, userID, domain.Day(day))
}
