// Package message implements the append-only chat message log. It exists
// only so reports can tell who wrote in the chat without translating.
package message

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres"
)

// Repo provides message-log persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new message-log repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const logSQL = `
INSERT INTO messages (user_id, username, message) VALUES ($1, $2, $3)`

const distinctSendersSQL = `
SELECT DISTINCT user_id, username
FROM messages
WHERE created_at >= $1 AND created_at < $2`

const purgeBeforeSQL = `
DELETE FROM messages WHERE created_at < $1`

// Log appends one chat message.
func (r *Repo) Log(ctx context.Context, userID int64, username, text string) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, logSQL, userID, username, text); err != nil {
		return fmt.Errorf("log message: %w", err)
	}

	return nil
}

// DistinctSenders returns everyone who wrote in the chat during [from, to).
func (r *Repo) DistinctSenders(ctx context.Context, from, to time.Time) (map[int64]string, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, distinctSendersSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("distinct senders: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var userID int64
		var username string
		if err := rows.Scan(&userID, &username); err != nil {
			return nil, fmt.Errorf("scan sender: %w", err)
		}
		out[userID] = username
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate senders: %w", err)
	}

	return out, nil
}

// PurgeBefore removes messages created before the cutoff (retention sweep).
func (r *Repo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, purgeBeforeSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge messages: %w", err)
	}

	return tag.RowsAffected(), nil
}
