package session_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/session"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

func newRepo(t *testing.T) (*session.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return session.New(pool), pool
}

func openSession(userID int64, startedAt time.Time) *domain.PracticeSession {
	return &domain.PracticeSession{
		ID:        uuid.New(),
		UserID:    userID,
		Username:  "anna",
		StartedAt: startedAt.UTC().Truncate(time.Microsecond),
	}
}

func TestRepo_Create_SecondOpenSessionRejected(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	userID := testhelper.UniqueUserID()
	now := time.Now()

	if _, err := repo.Create(ctx, openSession(userID, now)); err != nil {
		t.Fatalf("first session: %v", err)
	}

	_, err := repo.Create(ctx, openSession(userID, now.Add(time.Minute)))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRepo_Create_AllowedAfterFinish(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	userID := testhelper.UniqueUserID()
	now := time.Now()

	if _, err := repo.Create(ctx, openSession(userID, now)); err != nil {
		t.Fatalf("first session: %v", err)
	}
	if _, err := repo.FinishActive(ctx, userID, now.Add(5*time.Minute)); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if _, err := repo.Create(ctx, openSession(userID, now.Add(10*time.Minute))); err != nil {
		t.Fatalf("second session after finish must succeed: %v", err)
	}
}

func TestRepo_GetActive(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	userID := testhelper.UniqueUserID()

	if _, err := repo.GetActive(ctx, userID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any session, got %v", err)
	}

	created, err := repo.Create(ctx, openSession(userID, time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	active, err := repo.GetActive(ctx, userID)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.ID != created.ID {
		t.Errorf("expected session %s, got %s", created.ID, active.ID)
	}
	if active.Completed {
		t.Error("active session must not be completed")
	}
}

func TestRepo_FinishActive_Idempotent(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	userID := testhelper.UniqueUserID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	if _, err := repo.Create(ctx, openSession(userID, now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	finished, err := repo.FinishActive(ctx, userID, now.Add(7*time.Minute))
	if err != nil {
		t.Fatalf("FinishActive: %v", err)
	}
	if !finished.Completed || finished.FinishedAt == nil {
		t.Error("expected completed session with finished_at set")
	}

	// Second finish finds nothing open.
	if _, err := repo.FinishActive(ctx, userID, now.Add(8*time.Minute)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeated finish, got %v", err)
	}
}

func TestRepo_FinalizeAllForDay(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	userA := testhelper.UniqueUserID()
	userB := testhelper.UniqueUserID()

	if _, err := repo.Create(ctx, openSession(userA, day.Add(9*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Create(ctx, openSession(userB, day.Add(10*time.Hour))); err != nil {
		t.Fatal(err)
	}

	closed, err := repo.FinalizeAllForDay(ctx, day, day.Add(23*time.Hour))
	if err != nil {
		t.Fatalf("FinalizeAllForDay: %v", err)
	}
	if closed != 2 {
		t.Errorf("expected 2 closed sessions, got %d", closed)
	}

	// Idempotent: nothing open remains.
	closed, err = repo.FinalizeAllForDay(ctx, day, day.Add(23*time.Hour))
	if err != nil {
		t.Fatalf("second FinalizeAllForDay: %v", err)
	}
	if closed != 0 {
		t.Errorf("expected 0 on rerun, got %d", closed)
	}
}

func TestRepo_DeleteActive(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	userID := testhelper.UniqueUserID()
	now := time.Now()

	// Nothing open yet: a no-op, not an error.
	removed, err := repo.DeleteActive(ctx, userID)
	if err != nil {
		t.Fatalf("DeleteActive: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 removed with no open session, got %d", removed)
	}

	// A completed session must survive; only the open one goes.
	if _, err := repo.Create(ctx, openSession(userID, now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.FinishActive(ctx, userID, now.Add(5*time.Minute)); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := repo.Create(ctx, openSession(userID, now.Add(10*time.Minute))); err != nil {
		t.Fatalf("second create: %v", err)
	}

	removed, err = repo.DeleteActive(ctx, userID)
	if err != nil {
		t.Fatalf("DeleteActive: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}

	if _, err := repo.GetActive(ctx, userID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected no open session after delete, got %v", err)
	}

	hasAny, err := repo.HasAny(ctx, userID)
	if err != nil {
		t.Fatalf("HasAny: %v", err)
	}
	if !hasAny {
		t.Error("completed session must survive DeleteActive")
	}
}

func TestRepo_MinutesForWindow_BothAggregates(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	userID := testhelper.UniqueUserID()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// Two completed sessions: 10 and 20 minutes.
	end1 := base.Add(10 * time.Minute)
	end2 := base.Add(time.Hour + 20*time.Minute)
	testhelper.SeedSession(t, pool, userID, "anna", base, &end1)
	testhelper.SeedSession(t, pool, userID, "anna", base.Add(time.Hour), &end2)

	m, err := repo.MinutesForWindow(ctx, userID, base.Add(-time.Hour), base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("MinutesForWindow: %v", err)
	}

	if math.Abs(m.Sum-30) > 0.01 {
		t.Errorf("expected sum 30 minutes, got %f", m.Sum)
	}
	if math.Abs(m.Avg-15) > 0.01 {
		t.Errorf("expected avg 15 minutes, got %f", m.Avg)
	}
}

func TestRepo_MinutesForWindow_IgnoresOpenSessions(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	userID := testhelper.UniqueUserID()
	base := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)

	end := base.Add(10 * time.Minute)
	testhelper.SeedSession(t, pool, userID, "anna", base, &end)
	testhelper.SeedSession(t, pool, userID, "anna", base.Add(time.Hour), nil) // still open

	m, err := repo.MinutesForWindow(ctx, userID, base.Add(-time.Hour), base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("MinutesForWindow: %v", err)
	}

	if math.Abs(m.Sum-10) > 0.01 {
		t.Errorf("open sessions must not count: expected 10, got %f", m.Sum)
	}
}

func TestRepo_MinutesForWindow_EmptyWindow(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	userID := testhelper.UniqueUserID()

	m, err := repo.MinutesForWindow(ctx, userID,
		time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MinutesForWindow: %v", err)
	}

	if m.Sum != 0 || m.Avg != 0 {
		t.Errorf("expected zero aggregates for empty window, got %+v", m)
	}
}

func TestRepo_PerUserMinutes(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	userA := testhelper.UniqueUserID()
	userB := testhelper.UniqueUserID()

	endA := base.Add(12 * time.Minute)
	endB := base.Add(6 * time.Minute)
	testhelper.SeedSession(t, pool, userA, "anna", base, &endA)
	testhelper.SeedSession(t, pool, userB, "boris", base, &endB)

	perUser, err := repo.PerUserMinutes(ctx, base.Add(-time.Hour), base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("PerUserMinutes: %v", err)
	}

	if math.Abs(perUser[userA].Sum-12) > 0.01 {
		t.Errorf("user A: expected 12 minutes, got %f", perUser[userA].Sum)
	}
	if math.Abs(perUser[userB].Sum-6) > 0.01 {
		t.Errorf("user B: expected 6 minutes, got %f", perUser[userB].Sum)
	}
}
