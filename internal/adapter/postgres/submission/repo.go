// Package submission implements the translation-submission repository using
// PostgreSQL. The (user_id, assignment_id) unique index makes the first
// accepted submission authoritative: a concurrent duplicate loses with a
// unique violation and is reported as already-submitted, never rescored.
//
// Window aggregations are built with squirrel because the filter set varies
// (optional user, window bounds) between report types.
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

// Repo provides submission persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new submission repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const submissionColumns = `id, user_id, username, assignment_id, translation, score, feedback, created_at`

const createSQL = `
INSERT INTO translations (id, user_id, username, assignment_id, translation, score, feedback, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + submissionColumns

const existsSQL = `
SELECT EXISTS (SELECT 1 FROM translations WHERE user_id = $1 AND assignment_id = $2)`

const countForUserDaySQL = `
SELECT count(*)
FROM translations t
JOIN daily_sentences d ON t.assignment_id = d.id
WHERE t.user_id = $1 AND d.day = $2`

const distinctTranslatorsSQL = `
SELECT DISTINCT user_id, username
FROM translations
WHERE created_at >= $1 AND created_at < $2`

const deleteForUserSQL = `
DELETE FROM translations
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`

const purgeBeforeSQL = `
DELETE FROM translations WHERE created_at < $1`

// WindowStats are the graded-submission aggregates for one user and window.
type WindowStats struct {
	UserID          int64
	Username        string
	TranslatedCount int
	AvgScore        float64
}

// Create inserts a submission. Returns domain.ErrAlreadyExists when a
// submission for (user_id, assignment_id) already exists.
func (r *Repo) Create(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, createSQL,
		s.ID, s.UserID, s.Username, s.AssignmentID, s.Translation, s.Score, s.Feedback, s.CreatedAt)

	created, err := scanSubmission(row)
	if err != nil {
		return nil, postgres.MapError(err, "submission", s.ID.String())
	}

	return created, nil
}

// ExistsFor reports whether the user already submitted for the assignment.
func (r *Repo) ExistsFor(ctx context.Context, userID int64, assignmentID uuid.UUID) (bool, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var exists bool
	if err := querier.QueryRow(ctx, existsSQL, userID, assignmentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check submission exists: %w", err)
	}

	return exists, nil
}

// CountForUserDay returns how many assignments of the given day the user has
// submitted for, graded or not. Session-finish progress counts these: a
// grader outage must not look like a missed sentence.
func (r *Repo) CountForUserDay(ctx context.Context, userID int64, day time.Time) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, countForUserDaySQL, userID, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("count submissions for day: %w", err)
	}

	return count, nil
}

// StatsForWindow returns distinct graded-assignment count and mean score for
// one user over [from, to). Users with zero graded submissions get zeros.
func (r *Repo) StatsForWindow(ctx context.Context, userID int64, from, to time.Time) (WindowStats, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	query, args, err := statsQuery(from, to).
		Where(sq.Eq{"user_id": userID}).
		GroupBy("user_id", "username").
		ToSql()
	if err != nil {
		return WindowStats{}, fmt.Errorf("build stats query: %w", err)
	}

	var ws WindowStats
	err = querier.QueryRow(ctx, query, args...).Scan(&ws.UserID, &ws.Username, &ws.TranslatedCount, &ws.AvgScore)
	if err != nil {
		// No submissions in window is a zero result, not an error.
		if errors.Is(err, pgx.ErrNoRows) {
			return WindowStats{UserID: userID}, nil
		}
		return WindowStats{}, postgres.MapError(err, "submission stats", fmt.Sprintf("user %d", userID))
	}

	return ws, nil
}

// PerUserStats returns graded-submission aggregates for every user with at
// least one graded submission in [from, to). An empty result means the window
// had no activity.
func (r *Repo) PerUserStats(ctx context.Context, from, to time.Time) ([]WindowStats, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	query, args, err := statsQuery(from, to).
		GroupBy("user_id", "username").
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build per-user stats query: %w", err)
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("per-user submission stats: %w", err)
	}
	defer rows.Close()

	var out []WindowStats
	for rows.Next() {
		var ws WindowStats
		if err := rows.Scan(&ws.UserID, &ws.Username, &ws.TranslatedCount, &ws.AvgScore); err != nil {
			return nil, fmt.Errorf("scan submission stats: %w", err)
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission stats: %w", err)
	}

	return out, nil
}

// statsQuery is the shared aggregation core: only graded submissions count
// toward translated/average, per the scoring rules.
func statsQuery(from, to time.Time) sq.SelectBuilder {
	return psql.
		Select(
			"user_id",
			"username",
			"count(DISTINCT assignment_id) FILTER (WHERE score IS NOT NULL)",
			"coalesce(avg(score), 0)",
		).
		From("translations").
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.Lt{"created_at": to})
}

// DistinctTranslators returns every user with at least one submission
// (graded or not) in [from, to). Used by inactivity detection: any submission
// counts as participating, even one the grader failed to score.
func (r *Repo) DistinctTranslators(ctx context.Context, from, to time.Time) (map[int64]string, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, distinctTranslatorsSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("distinct translators: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var userID int64
		var username string
		if err := rows.Scan(&userID, &username); err != nil {
			return nil, fmt.Errorf("scan translator: %w", err)
		}
		out[userID] = username
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translators: %w", err)
	}

	return out, nil
}

// DeleteForUser removes the user's submissions created on the given day
// (admin reset).
func (r *Repo) DeleteForUser(ctx context.Context, userID int64, day time.Time) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	dayStart := domain.Day(day)
	dayEnd := dayStart.AddDate(0, 0, 1)

	tag, err := querier.Exec(ctx, deleteForUserSQL, userID, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("delete submissions: %w", err)
	}

	return tag.RowsAffected(), nil
}

// PurgeBefore removes submissions created before the cutoff (retention sweep).
func (r *Repo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, purgeBeforeSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge submissions: %w", err)
	}

	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var s domain.Submission
	if err := row.Scan(&s.ID, &s.UserID, &s.Username, &s.AssignmentID, &s.Translation, &s.Score, &s.Feedback, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
