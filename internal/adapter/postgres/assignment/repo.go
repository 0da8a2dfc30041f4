// Package assignment implements the daily-sentence assignment repository
// using PostgreSQL. The contiguous per-day numbering is produced by a single
// INSERT..SELECT statement so the count-and-insert step is one atomic unit;
// the (user_id, day, seq) unique index turns a concurrent double-allocation
// into a retryable unique violation.
package assignment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

// Repo provides assignment persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new assignment repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const assignmentColumns = `id, user_id, day, seq, sentence`

// createBatchSQL numbers the new rows starting right after the current
// maximum for (user_id, day). The subselect and the insert execute in the
// same statement, so two racing allocators read the same maximum and one of
// them loses on the unique index rather than creating a gap or duplicate.
const createBatchSQL = `
INSERT INTO daily_sentences (id, user_id, day, seq, sentence)
SELECT gen_random_uuid(), $1, $2,
       coalesce((SELECT max(seq) FROM daily_sentences WHERE user_id = $1 AND day = $2), 0) + t.ord,
       t.txt
FROM unnest($3::text[]) WITH ORDINALITY AS t(txt, ord)
RETURNING ` + assignmentColumns

const lookupSQL = `
SELECT ` + assignmentColumns + `
FROM daily_sentences
WHERE user_id = $1 AND day = $2 AND seq = $3`

const countForUserDaySQL = `
SELECT count(*) FROM daily_sentences WHERE user_id = $1 AND day = $2`

const countForWindowSQL = `
SELECT count(*) FROM daily_sentences WHERE user_id = $1 AND day >= $2 AND day < $3`

const perUserAssignedSQL = `
SELECT user_id, count(*)
FROM daily_sentences
WHERE day >= $1 AND day < $2
GROUP BY user_id`

const deleteForUserSQL = `
DELETE FROM daily_sentences WHERE user_id = $1 AND day = $2`

const purgeBeforeSQL = `
DELETE FROM daily_sentences WHERE day < $1`

// CreateBatch inserts one assignment per text with contiguous sequence
// numbers continuing the user's run for the day. Returns the created rows
// ordered by seq. A concurrent allocation for the same (user, day) surfaces
// as domain.ErrAlreadyExists; the caller retries.
func (r *Repo) CreateBatch(ctx context.Context, userID int64, day time.Time, texts []string) ([]domain.Assignment, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, createBatchSQL, userID, day, texts)
	if err != nil {
		return nil, postgres.MapError(err, "assignment batch", fmt.Sprintf("user %d", userID))
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "assignment batch", fmt.Sprintf("user %d", userID))
	}

	// RETURNING order is not guaranteed; the caller relies on seq order.
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })

	return out, nil
}

// Lookup resolves an assignment by its user-visible number for a day.
// Returns domain.ErrNotFound if absent (also when the number belongs to
// another user, since ownership is part of the key).
func (r *Repo) Lookup(ctx context.Context, userID int64, day time.Time, seq int) (*domain.Assignment, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, lookupSQL, userID, day, seq)

	a, err := scanAssignment(row)
	if err != nil {
		return nil, postgres.MapError(err, "assignment", fmt.Sprintf("user %d seq %d", userID, seq))
	}

	return &a, nil
}

// CountForUserDay returns how many sentences the user received on the day.
func (r *Repo) CountForUserDay(ctx context.Context, userID int64, day time.Time) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, countForUserDaySQL, userID, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("count assignments for day: %w", err)
	}

	return count, nil
}

// CountForWindow returns how many sentences the user received across the
// [from, to) day window.
func (r *Repo) CountForWindow(ctx context.Context, userID int64, from, to time.Time) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, countForWindowSQL, userID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("count assignments for window: %w", err)
	}

	return count, nil
}

// PerUserAssigned returns assignment counts per user across the [from, to)
// day window (for leaderboard missed-count computation).
func (r *Repo) PerUserAssigned(ctx context.Context, from, to time.Time) (map[int64]int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, perUserAssignedSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("per-user assigned counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var userID int64
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("scan assigned count: %w", err)
		}
		counts[userID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned counts: %w", err)
	}

	return counts, nil
}

// DeleteForUser removes the user's assignments for one day (admin reset).
// Submissions referencing them go with them via ON DELETE CASCADE.
func (r *Repo) DeleteForUser(ctx context.Context, userID int64, day time.Time) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, deleteForUserSQL, userID, day)
	if err != nil {
		return 0, fmt.Errorf("delete assignments: %w", err)
	}

	return tag.RowsAffected(), nil
}

// PurgeBefore removes assignments older than the given day (retention sweep).
func (r *Repo) PurgeBefore(ctx context.Context, day time.Time) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, purgeBeforeSQL, day)
	if err != nil {
		return 0, fmt.Errorf("purge assignments: %w", err)
	}

	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (domain.Assignment, error) {
	var a domain.Assignment
	if err := row.Scan(&a.ID, &a.UserID, &a.Day, &a.Seq, &a.Text); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}
