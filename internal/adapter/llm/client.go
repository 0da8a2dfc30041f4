// Package llm wraps the Anthropic API as the engine's two oracles: the
// sentence-pool generator and the translation grader. Both calls retry a
// bounded number of times with an increasing delay on rate limits, then
// degrade instead of blocking the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/heartmarshall/sprachduell-bot/internal/config"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

// Client calls the LLM for sentence generation and translation grading.
type Client struct {
	api anthropic.Client
	cfg config.LLMConfig
	log *slog.Logger
}

// New creates a Client from config. The API key falls back to the SDK's own
// environment lookup when unset.
func New(cfg config.LLMConfig, log *slog.Logger) *Client {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &Client{
		api: anthropic.NewClient(opts...),
		cfg: cfg,
		log: log.With("adapter", "llm"),
	}
}

// GenerateSentences asks for n source sentences, one per line. Blank lines
// are filtered out. Retries on rate limit up to the configured budget with
// an increasing delay; after that it fails so the caller can fall back.
func (c *Client) GenerateSentences(ctx context.Context, n int) ([]string, error) {
	prompt := generatePrompt(n)

	text, err := c.complete(ctx, prompt, c.cfg.GenerateAttempts, c.cfg.GenerateBackoff)
	if err != nil {
		return nil, fmt.Errorf("generate sentences: %w", err)
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("generate sentences: empty response")
	}

	return out, nil
}

// Grade scores a candidate translation against its source sentence.
// The grader's text contract is "Score: N/100" somewhere in the response;
// extraction failure yields a nil score with the feedback kept for a human.
// A rate-limited grader degrades to a nil-score "unavailable" result after
// the retry budget instead of returning an error.
func (c *Client) Grade(ctx context.Context, source, candidate string) (domain.GradeResult, error) {
	prompt := gradePrompt(source, candidate)

	text, err := c.complete(ctx, prompt, c.cfg.GradeAttempts, c.cfg.GradeBackoff)
	if err != nil {
		if errors.Is(err, domain.ErrGraderUnavailable) {
			c.log.WarnContext(ctx, "grader unavailable, storing unscored submission")
			return domain.GradeResult{Feedback: "Grading is temporarily unavailable. Your translation was recorded."}, nil
		}
		return domain.GradeResult{}, fmt.Errorf("grade translation: %w", err)
	}

	return ParseGrade(text), nil
}

// complete runs one prompt with the retry/backoff ladder shared by both
// oracles. Only rate limits and overload responses are retried.
func (c *Client) complete(ctx context.Context, prompt string, attempts int, backoff time.Duration) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.cfg.Model),
			MaxTokens: c.cfg.MaxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err == nil {
			if len(msg.Content) == 0 {
				return "", fmt.Errorf("empty response")
			}
			return msg.Content[0].Text, nil
		}

		if !isRateLimited(err) {
			return "", err
		}

		lastErr = err
		wait := time.Duration(attempt) * backoff
		c.log.WarnContext(ctx, "llm rate limited, backing off",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("%w: %v", domain.ErrGraderUnavailable, lastErr)
}

func isRateLimited(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode == http.StatusServiceUnavailable ||
			apiErr.StatusCode == 529 // anthropic "overloaded"
	}
	return false
}

func generatePrompt(n int) string {
	return fmt.Sprintf(`You are preparing a daily translation exercise.

Write %d Russian sentences at B2-C1 level to be translated into German.

Requirements:
- Use passive voice and Konjunktiv II triggers in at least half of the sentences.
- One sentence per line, no numbering, no blank lines.
- Do NOT include any translation, only the Russian source sentences.`, n)
}

func gradePrompt(source, candidate string) string {
	return fmt.Sprintf(`You are a professional linguist and German teacher.
Check a translation from Russian into German.

- Source (Russian): "%s"
- Candidate translation (German): "%s"

Requirements:
1. Give a score from 0 to 100 for accuracy, grammar and style. A translation
   that does not match the source content scores 0.
2. Explain the mistakes briefly (2-3 sentences), including how the grammatical
   construction should be built.
3. If the translation is wrong, give the most common correct translation.

Response format (plain text only):
Score: X/100
Mistakes: ...
Recommendation: ...`, source, candidate)
}
