package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Chat     ChatConfig     `yaml:"chat"`
	LLM      LLMConfig      `yaml:"llm"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	CallTimeout     time.Duration `yaml:"call_timeout"       env:"DATABASE_CALL_TIMEOUT"       env-default:"5s"`
}

// ChatConfig identifies the group the bot serves and its single admin.
type ChatConfig struct {
	BotToken    string `yaml:"bot_token"     env:"CHAT_BOT_TOKEN"     env-required:"true"`
	GroupID     int64  `yaml:"group_id"      env:"CHAT_GROUP_ID"      env-required:"true"`
	AdminUserID int64  `yaml:"admin_user_id" env:"CHAT_ADMIN_USER_ID" env-required:"true"`
	APIBaseURL  string `yaml:"api_base_url"  env:"CHAT_API_BASE_URL"  env-default:"https://api.telegram.org"`
}

// LLMConfig holds settings for the sentence generator and translation grader.
type LLMConfig struct {
	APIKey           string        `yaml:"api_key"            env:"ANTHROPIC_API_KEY"`
	Model            string        `yaml:"model"              env:"LLM_MODEL"              env-default:"claude-sonnet-4-20250514"`
	MaxTokens        int64         `yaml:"max_tokens"         env:"LLM_MAX_TOKENS"         env-default:"1024"`
	GenerateAttempts int           `yaml:"generate_attempts"  env:"LLM_GENERATE_ATTEMPTS"  env-default:"5"`
	GradeAttempts    int           `yaml:"grade_attempts"     env:"LLM_GRADE_ATTEMPTS"     env-default:"3"`
	GenerateBackoff  time.Duration `yaml:"generate_backoff"   env:"LLM_GENERATE_BACKOFF"   env-default:"2s"`
	GradeBackoff     time.Duration `yaml:"grade_backoff"      env:"LLM_GRADE_BACKOFF"      env-default:"5s"`
}

// ScoringConfig holds the competition parameters. The penalty constants are
// tuned per deployment, so they live in configuration rather than code.
type ScoringConfig struct {
	MissedSentencePenalty float64 `yaml:"missed_sentence_penalty" env:"SCORING_MISSED_PENALTY" env-default:"20"`
	TimeWeight            float64 `yaml:"time_weight"             env:"SCORING_TIME_WEIGHT"    env-default:"1"`
	BatchSize             int     `yaml:"batch_size"              env:"SCORING_BATCH_SIZE"     env-default:"5"`
	MinPoolReplace        int     `yaml:"min_pool_replace"        env:"SCORING_MIN_POOL"       env-default:"3"`
	RetentionDays         int     `yaml:"retention_days"          env:"SCORING_RETENTION_DAYS" env-default:"7"`
	AllocateRetries       int     `yaml:"allocate_retries"        env:"SCORING_ALLOC_RETRIES"  env-default:"3"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
