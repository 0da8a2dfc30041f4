// Package session implements the practice-session repository using
// PostgreSQL. "At most one open session per user" is enforced by a partial
// unique index, so the start-session race collapses into a unique violation
// instead of depending on request ordering. All completing updates are
// conditional on completed = false, which makes finish and the scheduled
// finalization sweep idempotent and order-independent.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

// Repo provides practice-session persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new session repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const sessionColumns = `id, user_id, username, started_at, finished_at, completed`

const createSQL = `
INSERT INTO user_progress (id, user_id, username, started_at, completed)
VALUES ($1, $2, $3, $4, false)
RETURNING ` + sessionColumns

const getActiveSQL = `
SELECT ` + sessionColumns + `
FROM user_progress
WHERE user_id = $1 AND NOT completed`

const hasAnySQL = `
SELECT EXISTS (SELECT 1 FROM user_progress WHERE user_id = $1)`

const finishActiveSQL = `
UPDATE user_progress
SET completed = true, finished_at = $2
WHERE user_id = $1 AND NOT completed
RETURNING ` + sessionColumns

const finalizeAllSQL = `
UPDATE user_progress
SET completed = true, finished_at = $3
WHERE NOT completed AND started_at >= $1 AND started_at < $2`

// minutesForWindowSQL computes both aggregation policies in one pass over
// the user's completed sessions started inside the window. Negative
// durations cannot occur (finish clamps end >= start), so no guard here.
const minutesForWindowSQL = `
SELECT
    coalesce(sum(extract(epoch FROM (finished_at - started_at)) / 60), 0),
    coalesce(avg(extract(epoch FROM (finished_at - started_at)) / 60), 0)
FROM user_progress
WHERE user_id = $1 AND completed AND finished_at IS NOT NULL
  AND started_at >= $2 AND started_at < $3`

const perUserMinutesSQL = `
SELECT
    user_id,
    coalesce(sum(extract(epoch FROM (finished_at - started_at)) / 60), 0),
    coalesce(avg(extract(epoch FROM (finished_at - started_at)) / 60), 0)
FROM user_progress
WHERE completed AND finished_at IS NOT NULL
  AND started_at >= $1 AND started_at < $2
GROUP BY user_id`

const deleteActiveSQL = `
DELETE FROM user_progress
WHERE user_id = $1 AND NOT completed`

const deleteForUserSQL = `
DELETE FROM user_progress
WHERE user_id = $1 AND started_at >= $2 AND started_at < $3`

const purgeBeforeSQL = `
DELETE FROM user_progress WHERE started_at < $1`

// Minutes holds both session-time aggregates for a window.
type Minutes struct {
	Sum float64
	Avg float64
}

// Create inserts a new open session. Returns domain.ErrAlreadyExists when the
// user already has an open session (partial unique index).
func (r *Repo) Create(ctx context.Context, s *domain.PracticeSession) (*domain.PracticeSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, createSQL, s.ID, s.UserID, s.Username, s.StartedAt)

	created, err := scanSession(row)
	if err != nil {
		return nil, postgres.MapError(err, "session", s.ID.String())
	}

	return created, nil
}

// GetActive returns the user's open session, or domain.ErrNotFound.
func (r *Repo) GetActive(ctx context.Context, userID int64) (*domain.PracticeSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getActiveSQL, userID)

	s, err := scanSession(row)
	if err != nil {
		return nil, postgres.MapError(err, "session", fmt.Sprintf("user %d", userID))
	}

	return s, nil
}

// HasAny reports whether the user has ever had a session row.
func (r *Repo) HasAny(ctx context.Context, userID int64) (bool, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var exists bool
	if err := querier.QueryRow(ctx, hasAnySQL, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check session history: %w", err)
	}

	return exists, nil
}

// FinishActive completes the user's open session, setting finished_at.
// Returns domain.ErrNotFound when no open session exists — including when a
// concurrent finalization already completed it.
func (r *Repo) FinishActive(ctx context.Context, userID int64, finishedAt time.Time) (*domain.PracticeSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, finishActiveSQL, userID, finishedAt)

	s, err := scanSession(row)
	if err != nil {
		return nil, postgres.MapError(err, "session", fmt.Sprintf("user %d", userID))
	}

	return s, nil
}

// FinalizeAllForDay completes every session still open that started on the
// given day. Idempotent: already-completed rows are untouched, so rerunning
// affects zero rows.
func (r *Repo) FinalizeAllForDay(ctx context.Context, day, now time.Time) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	dayStart := domain.Day(day)
	dayEnd := dayStart.AddDate(0, 0, 1)

	tag, err := querier.Exec(ctx, finalizeAllSQL, dayStart, dayEnd, now)
	if err != nil {
		return 0, fmt.Errorf("finalize sessions for day: %w", err)
	}

	return tag.RowsAffected(), nil
}

// MinutesForWindow returns sum and average minutes over the user's completed
// sessions whose start falls in [from, to).
func (r *Repo) MinutesForWindow(ctx context.Context, userID int64, from, to time.Time) (Minutes, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var m Minutes
	if err := querier.QueryRow(ctx, minutesForWindowSQL, userID, from, to).Scan(&m.Sum, &m.Avg); err != nil {
		return Minutes{}, fmt.Errorf("session minutes for window: %w", err)
	}

	return m, nil
}

// PerUserMinutes returns both session-time aggregates per user for [from, to).
func (r *Repo) PerUserMinutes(ctx context.Context, from, to time.Time) (map[int64]Minutes, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, perUserMinutesSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("per-user session minutes: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]Minutes)
	for rows.Next() {
		var userID int64
		var m Minutes
		if err := rows.Scan(&userID, &m.Sum, &m.Avg); err != nil {
			return nil, fmt.Errorf("scan session minutes: %w", err)
		}
		out[userID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session minutes: %w", err)
	}

	return out, nil
}

// DeleteActive removes the user's open session, if any. Completed rows are
// never touched, so unwinding a failed start cannot erase history.
func (r *Repo) DeleteActive(ctx context.Context, userID int64) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, deleteActiveSQL, userID)
	if err != nil {
		return 0, fmt.Errorf("delete active session: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteForUser removes the user's sessions started on the given day
// (admin reset).
func (r *Repo) DeleteForUser(ctx context.Context, userID int64, day time.Time) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	dayStart := domain.Day(day)
	dayEnd := dayStart.AddDate(0, 0, 1)

	tag, err := querier.Exec(ctx, deleteForUserSQL, userID, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}

// PurgeBefore removes sessions started before the cutoff (retention sweep).
func (r *Repo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, purgeBeforeSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.PracticeSession, error) {
	var s domain.PracticeSession
	if err := row.Scan(&s.ID, &s.UserID, &s.Username, &s.StartedAt, &s.FinishedAt, &s.Completed); err != nil {
		return nil, err
	}
	return &s, nil
}
