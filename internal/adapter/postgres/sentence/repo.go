// Package sentence implements the sentence-pool repository using PostgreSQL.
package sentence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

// Repo provides sentence-pool persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new sentence repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const sampleSQL = `
SELECT id, sentence FROM sentences
ORDER BY random()
LIMIT $1`

const countSQL = `SELECT count(*) FROM sentences`

const deleteAllSQL = `DELETE FROM sentences`

const insertSQL = `INSERT INTO sentences (id, sentence) VALUES ($1, $2)`

// Sample returns up to n random sentences from the pool.
// An empty pool yields an empty slice, not an error.
func (r *Repo) Sample(ctx context.Context, n int) ([]domain.SourceSentence, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, sampleSQL, n)
	if err != nil {
		return nil, fmt.Errorf("sample sentences: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceSentence
	for rows.Next() {
		var s domain.SourceSentence
		if err := rows.Scan(&s.ID, &s.Text); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentences: %w", err)
	}

	if out == nil {
		out = []domain.SourceSentence{}
	}

	return out, nil
}

// Count returns the pool size.
func (r *Repo) Count(ctx context.Context) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, countSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sentences: %w", err)
	}

	return count, nil
}

// ReplaceAll deletes the current pool and inserts the given texts.
// Must run inside a transaction (the caller's TxManager) so a failed replace
// never leaves the pool half-empty.
func (r *Repo) ReplaceAll(ctx context.Context, texts []string) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, deleteAllSQL); err != nil {
		return fmt.Errorf("clear sentence pool: %w", err)
	}

	for _, text := range texts {
		id := uuid.New()
		if _, err := querier.Exec(ctx, insertSQL, id, text); err != nil {
			return postgres.MapError(err, "sentence", id.String())
		}
	}

	return nil
}
