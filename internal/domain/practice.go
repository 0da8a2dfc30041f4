package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceSentence is one sentence in the practice pool. The pool is replaced
// wholesale by the admin; rows are never edited in place.
type SourceSentence struct {
	ID   uuid.UUID
	Text string
}

// Assignment is one sentence handed to one user for one day. Seq is the
// user-visible sentence number for that day: per (UserID, Day) it is a
// contiguous run starting at 1, enforced by a unique index in storage.
type Assignment struct {
	ID     uuid.UUID
	UserID int64
	Day    time.Time
	Seq    int
	Text   string
}

// PracticeSession is one timed practice round. At most one session per user
// may have Completed == false at any time (storage-enforced).
type PracticeSession struct {
	ID         uuid.UUID
	UserID     int64
	Username   string
	StartedAt  time.Time
	FinishedAt *time.Time
	Completed  bool
}

// Minutes returns the session duration in minutes, 0 while the session is open.
func (s PracticeSession) Minutes() float64 {
	if s.FinishedAt == nil {
		return 0
	}
	d := s.FinishedAt.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return d.Minutes()
}

// Submission is a user's graded translation attempt for one assignment.
// Only the first submission per (UserID, AssignmentID) is ever persisted.
// Score is nil when the grader failed to return a parsable value.
type Submission struct {
	ID           uuid.UUID
	UserID       int64
	Username     string
	AssignmentID uuid.UUID
	Translation  string
	Score        *int
	Feedback     string
	CreatedAt    time.Time
}

// GradeResult is the structured outcome of one grader call.
// Score is nil when no score could be extracted from the grader output;
// Feedback is always kept so a human can adjudicate.
type GradeResult struct {
	Score    *int
	Feedback string
}

// ValidScore reports whether v is inside the grader's 0..100 contract.
func ValidScore(v int) bool {
	return v >= 0 && v <= 100
}

// Day truncates t to its UTC calendar date. All per-day bookkeeping
// (assignments, finalization sweeps, resets) keys on this value.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
