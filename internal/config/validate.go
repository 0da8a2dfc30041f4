package config

import (
	"fmt"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Database.CallTimeout <= 0 {
		return fmt.Errorf("database.call_timeout must be > 0 (got %v)", c.Database.CallTimeout)
	}

	if c.Chat.AdminUserID == 0 {
		return fmt.Errorf("chat.admin_user_id must be set")
	}

	if err := c.Scoring.validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	if err := c.LLM.validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	return nil
}

func (s *ScoringConfig) validate() error {
	if s.MissedSentencePenalty < 0 {
		return fmt.Errorf("missed_sentence_penalty must be >= 0 (got %v)", s.MissedSentencePenalty)
	}
	if s.TimeWeight < 0 {
		return fmt.Errorf("time_weight must be >= 0 (got %v)", s.TimeWeight)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", s.BatchSize)
	}
	if s.MinPoolReplace < 1 {
		return fmt.Errorf("min_pool_replace must be >= 1 (got %d)", s.MinPoolReplace)
	}
	if s.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be > 0 (got %d)", s.RetentionDays)
	}
	if s.AllocateRetries < 1 {
		return fmt.Errorf("allocate_retries must be >= 1 (got %d)", s.AllocateRetries)
	}
	return nil
}

func (l *LLMConfig) validate() error {
	if l.Model == "" {
		return fmt.Errorf("model must be set")
	}
	if l.GenerateAttempts < 1 || l.GradeAttempts < 1 {
		return fmt.Errorf("retry attempts must be >= 1 (generate %d, grade %d)", l.GenerateAttempts, l.GradeAttempts)
	}
	return nil
}
