package testhelper

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

// UniqueUserID returns a random user id so parallel tests sharing the
// container never collide on the per-user unique indexes.
func UniqueUserID() int64 {
	return rand.Int63n(1_000_000_000) + 1_000_000
}

// SeedSentences inserts the given texts into the sentence pool.
func SeedSentences(t *testing.T, pool *pgxpool.Pool, texts ...string) []domain.SourceSentence {
	t.Helper()
	ctx := context.Background()

	out := make([]domain.SourceSentence, 0, len(texts))
	for _, text := range texts {
		s := domain.SourceSentence{ID: uuid.New(), Text: text}
		_, err := pool.Exec(ctx,
			`INSERT INTO sentences (id, sentence) VALUES ($1, $2)`,
			s.ID, s.Text,
		)
		if err != nil {
			t.Fatalf("testhelper: SeedSentences insert: %v", err)
		}
		out = append(out, s)
	}
	return out
}

// SeedAssignment inserts one daily sentence row.
func SeedAssignment(t *testing.T, pool *pgxpool.Pool, userID int64, day time.Time, seq int, text string) domain.Assignment {
	t.Helper()
	ctx := context.Background()

	a := domain.Assignment{
		ID:     uuid.New(),
		UserID: userID,
		Day:    domain.Day(day),
		Seq:    seq,
		Text:   text,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO daily_sentences (id, user_id, day, seq, sentence) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.UserID, a.Day, a.Seq, a.Text,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedAssignment insert: %v", err)
	}

	return a
}

// SeedSession inserts one practice session. A nil finishedAt leaves the
// session open (completed = false).
func SeedSession(t *testing.T, pool *pgxpool.Pool, userID int64, username string, startedAt time.Time, finishedAt *time.Time) domain.PracticeSession {
	t.Helper()
	ctx := context.Background()

	s := domain.PracticeSession{
		ID:         uuid.New(),
		UserID:     userID,
		Username:   username,
		StartedAt:  startedAt.UTC().Truncate(time.Microsecond),
		FinishedAt: finishedAt,
		Completed:  finishedAt != nil,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO user_progress (id, user_id, username, started_at, finished_at, completed)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.Username, s.StartedAt, s.FinishedAt, s.Completed,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSession insert: %v", err)
	}

	return s
}

// SeedSubmission inserts one translation row. A nil score models a grader
// outage.
func SeedSubmission(t *testing.T, pool *pgxpool.Pool, userID int64, username string, assignmentID uuid.UUID, score *int) domain.Submission {
	t.Helper()
	ctx := context.Background()

	sub := domain.Submission{
		ID:           uuid.New(),
		UserID:       userID,
		Username:     username,
		AssignmentID: assignmentID,
		Translation:  "Eine Übersetzung.",
		Score:        score,
		Feedback:     "ok",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO translations (id, user_id, username, assignment_id, translation, score, feedback, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.UserID, sub.Username, sub.AssignmentID, sub.Translation, sub.Score, sub.Feedback, sub.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSubmission insert: %v", err)
	}

	return sub
}

// SeedMessage inserts one chat-log row.
func SeedMessage(t *testing.T, pool *pgxpool.Pool, userID int64, username, text string, at time.Time) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO messages (user_id, username, message, created_at) VALUES ($1, $2, $3, $4)`,
		userID, username, text, at.UTC(),
	)
	if err != nil {
		t.Fatalf("testhelper: SeedMessage insert: %v", err)
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
