// Command bot runs the chat bot: it wires the engine services to the
// Bot API long-poll transport and serves commands until interrupted.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/adapter/chat"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/llm"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/assignment"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/message"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/sentence"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/session"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/submission"
	"github.com/heartmarshall/sprachduell-bot/internal/app"
	"github.com/heartmarshall/sprachduell-bot/internal/bot"
	"github.com/heartmarshall/sprachduell-bot/internal/config"
	adminsvc "github.com/heartmarshall/sprachduell-bot/internal/service/admin"
	allocatorsvc "github.com/heartmarshall/sprachduell-bot/internal/service/allocator"
	poolsvc "github.com/heartmarshall/sprachduell-bot/internal/service/pool"
	scoringsvc "github.com/heartmarshall/sprachduell-bot/internal/service/scoring"
	sessionsvc "github.com/heartmarshall/sprachduell-bot/internal/service/session"
	submissionsvc "github.com/heartmarshall/sprachduell-bot/internal/service/submission"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("starting bot", slog.String("version", app.BuildVersion()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	sentenceRepo := sentence.New(pool)
	assignmentRepo := assignment.New(pool)
	sessionRepo := session.New(pool)
	submissionRepo := submission.New(pool)
	messageRepo := message.New(pool)

	llmClient := llm.New(cfg.LLM, logger)

	weights := domain.ScoringWeights{
		MissedSentencePenalty: cfg.Scoring.MissedSentencePenalty,
		TimeWeight:            cfg.Scoring.TimeWeight,
	}

	pools := poolsvc.NewService(logger, sentenceRepo, llmClient, txm, cfg.Scoring.MinPoolReplace)
	allocator := allocatorsvc.NewService(logger, assignmentRepo, cfg.Scoring.AllocateRetries)
	sessions := sessionsvc.NewService(logger, sessionRepo, assignmentRepo, submissionRepo, cfg.Scoring.MissedSentencePenalty)
	submissions := submissionsvc.NewService(logger, allocator, submissionRepo, llmClient, cfg.Database.CallTimeout)
	scoring := scoringsvc.NewService(logger, submissionRepo, sessionRepo, assignmentRepo, messageRepo, weights)
	adm := adminsvc.NewService(logger, assignmentRepo, sessionRepo, submissionRepo, txm)

	router := bot.NewRouter(
		logger,
		pools,
		allocator,
		sessions,
		submissions,
		scoring,
		adm,
		messageRepo,
		cfg.Chat.AdminUserID,
		cfg.Scoring.BatchSize,
		cfg.Database.CallTimeout,
	)

	poller := chat.NewPoller(cfg.Chat, router, logger)
	if err := poller.Run(ctx); err != nil {
		logger.Error("poller stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("bot stopped")
}
