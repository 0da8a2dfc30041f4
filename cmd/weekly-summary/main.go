// Command weekly-summary posts the trailing-week leaderboard to the group
// and then purges rows past the retention window. It is intended to be
// invoked by an external cron job once a week.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/adapter/chat"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/assignment"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/message"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/session"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/submission"
	"github.com/heartmarshall/sprachduell-bot/internal/app"
	"github.com/heartmarshall/sprachduell-bot/internal/config"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
	"github.com/heartmarshall/sprachduell-bot/internal/report"
	scoringsvc "github.com/heartmarshall/sprachduell-bot/internal/service/scoring"
	sessionsvc "github.com/heartmarshall/sprachduell-bot/internal/service/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	assignmentRepo := assignment.New(pool)
	sessionRepo := session.New(pool)
	submissionRepo := submission.New(pool)
	messageRepo := message.New(pool)

	weights := domain.ScoringWeights{
		MissedSentencePenalty: cfg.Scoring.MissedSentencePenalty,
		TimeWeight:            cfg.Scoring.TimeWeight,
	}

	sessions := sessionsvc.NewService(logger, sessionRepo, assignmentRepo, submissionRepo, cfg.Scoring.MissedSentencePenalty)
	scoring := scoringsvc.NewService(logger, submissionRepo, sessionRepo, assignmentRepo, messageRepo, weights)

	sink := chat.NewSink(cfg.Chat, logger)
	reporter := report.New(logger, scoring, sessions,
		submissionRepo, sessionRepo, assignmentRepo, messageRepo,
		sink, cfg.Scoring.RetentionDays)

	if err := reporter.WeeklySummary(ctx, time.Now()); err != nil {
		logger.Error("weekly summary failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("weekly summary sent")
}
