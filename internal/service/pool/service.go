// Package pool manages the source-sentence pool: sampling batches for new
// sessions and the admin bulk replace.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

type sentenceStore interface {
	Sample(ctx context.Context, n int) ([]domain.SourceSentence, error)
	ReplaceAll(ctx context.Context, texts []string) error
}

type generator interface {
	GenerateSentences(ctx context.Context, n int) ([]string, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements sentence-pool operations.
type Service struct {
	store      sentenceStore
	generator  generator
	tx         txManager
	minReplace int
	log        *slog.Logger
}

// NewService creates a new pool service. minReplace is the minimum number of
// sentences an admin replace must carry.
func NewService(log *slog.Logger, store sentenceStore, generator generator, tx txManager, minReplace int) *Service {
	return &Service{
		store:      store,
		generator:  generator,
		tx:         tx,
		minReplace: minReplace,
		log:        log.With("service", "pool"),
	}
}

// Batch returns n sentence texts for a new practice round: sampled from the
// pool, or generated on the fly when the pool is empty.
func (s *Service) Batch(ctx context.Context, n int) ([]string, error) {
	sampled, err := s.store.Sample(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("sample batch: %w", err)
	}

	if len(sampled) > 0 {
		texts := make([]string, len(sampled))
		for i, sen := range sampled {
			texts[i] = sen.Text
		}
		return texts, nil
	}

	s.log.InfoContext(ctx, "sentence pool empty, generating batch", slog.Int("n", n))

	generated, err := s.generator.GenerateSentences(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("generate batch: %w", err)
	}

	return generated, nil
}

// Replace swaps the whole pool for the given texts (admin operation).
// Requires at least minReplace non-blank entries; delete and insert run in
// one transaction so the pool is never left half-empty.
func (s *Service) Replace(ctx context.Context, texts []string) (int, error) {
	filtered := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t != "" {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) < s.minReplace {
		return 0, domain.NewValidationError("sentences",
			fmt.Sprintf("at least %d sentences required, got %d", s.minReplace, len(filtered)))
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.store.ReplaceAll(txCtx, filtered)
	})
	if err != nil {
		return 0, fmt.Errorf("replace pool: %w", err)
	}

	s.log.InfoContext(ctx, "sentence pool replaced", slog.Int("count", len(filtered)))

	return len(filtered), nil
}
